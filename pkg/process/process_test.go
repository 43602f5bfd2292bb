package process

import (
	"os"
	"testing"
)

func TestSelfStats(t *testing.T) {
	stats, err := SelfStats()
	if err != nil {
		t.Skipf("无法读取进程信息: %v", err)
	}

	if stats.PID != os.Getpid() {
		t.Errorf("PID 应为 %d, 实际 %d", os.Getpid(), stats.PID)
	}
	if stats.Goroutines < 1 {
		t.Error("goroutine 数量至少为 1")
	}
	t.Logf("进程资源: %+v", stats)
}

func TestGetProcessByPID(t *testing.T) {
	info, err := GetProcessByPID(os.Getpid())
	if err != nil {
		t.Skipf("无法读取进程信息: %v", err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("PID 不匹配: %d", info.PID)
	}
	if !IsProcessRunning(os.Getpid()) {
		t.Error("当前进程应处于运行状态")
	}
}

func TestFindOtherInstancesExcludesSelf(t *testing.T) {
	others, err := FindOtherInstances()
	if err != nil {
		t.Skipf("无法枚举进程: %v", err)
	}
	for _, p := range others {
		if p.PID == os.Getpid() {
			t.Error("结果不应包含当前进程")
		}
	}
}
