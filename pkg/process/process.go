// Package process 提供进程信息：本进程资源占用与同名进程查找
package process

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessInfo 进程信息
type ProcessInfo struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Stats 本进程资源占用
type Stats struct {
	PID        int           `json:"pid"`
	CPUPercent float64       `json:"cpu_percent"`
	RSSBytes   uint64        `json:"rss_bytes"`
	Threads    int32         `json:"threads"`
	Goroutines int           `json:"goroutines"`
	Uptime     time.Duration `json:"uptime"`
}

// SelfStats 获取本进程的资源占用
func SelfStats() (*Stats, error) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("获取进程信息失败: %w", err)
	}

	stats := &Stats{
		PID:        pid,
		Goroutines: runtime.NumGoroutine(),
	}

	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if n, err := proc.NumThreads(); err == nil {
		stats.Threads = n
	}
	if created, err := proc.CreateTime(); err == nil && created > 0 {
		stats.Uptime = time.Since(time.UnixMilli(created)).Truncate(time.Second)
	}

	return stats, nil
}

// FindProcess 按名称查找进程 (不区分大小写，支持部分匹配)
func FindProcess(name string) ([]ProcessInfo, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, fmt.Errorf("获取进程列表失败: %w", err)
	}

	name = strings.ToLower(name)
	var matches []ProcessInfo

	for _, pid := range pids {
		proc, err := process.NewProcess(pid)
		if err != nil {
			continue
		}

		procName, err := proc.Name()
		if err != nil {
			continue
		}

		if strings.Contains(strings.ToLower(procName), name) {
			exe, _ := proc.Exe()
			matches = append(matches, ProcessInfo{
				PID:  int(pid),
				Name: procName,
				Path: exe,
			})
		}
	}

	return matches, nil
}

// FindOtherInstances 查找与本进程同名的其他进程
func FindOtherInstances() ([]ProcessInfo, error) {
	self, err := GetProcessByPID(os.Getpid())
	if err != nil {
		return nil, err
	}
	all, err := FindProcess(self.Name)
	if err != nil {
		return nil, err
	}

	var others []ProcessInfo
	for _, p := range all {
		if p.PID != self.PID && strings.EqualFold(p.Name, self.Name) {
			others = append(others, p)
		}
	}
	return others, nil
}

// GetProcessByPID 按 PID 获取进程信息
func GetProcessByPID(pid int) (*ProcessInfo, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("进程不存在: PID=%d", pid)
	}

	name, _ := proc.Name()
	exe, _ := proc.Exe()

	return &ProcessInfo{
		PID:  pid,
		Name: name,
		Path: exe,
	}, nil
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) bool {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	running, err := proc.IsRunning()
	if err != nil {
		return false
	}
	return running
}
