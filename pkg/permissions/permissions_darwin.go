//go:build darwin

package permissions

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework ApplicationServices -framework CoreGraphics
#import <Cocoa/Cocoa.h>
#import <ApplicationServices/ApplicationServices.h>
#import <CoreGraphics/CoreGraphics.h>

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge NSString *)kAXTrustedCheckOptionPrompt: @NO};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}

int requestAccessibilityPermission() {
    NSDictionary *options = @{(__bridge NSString *)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}

int checkScreenRecordingPermission() {
    if (@available(macOS 10.15, *)) {
        CFArrayRef windowList = CGWindowListCopyWindowInfo(
            kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements,
            kCGNullWindowID
        );

        if (windowList == NULL) {
            return 0;
        }

        CFIndex count = CFArrayGetCount(windowList);
        int hasNames = 0;

        for (CFIndex i = 0; i < count; i++) {
            CFDictionaryRef window = (CFDictionaryRef)CFArrayGetValueAtIndex(windowList, i);
            CFStringRef name = (CFStringRef)CFDictionaryGetValue(window, kCGWindowName);
            if (name != NULL && CFStringGetLength(name) > 0) {
                hasNames = 1;
                break;
            }
        }

        CFRelease(windowList);
        return (count == 0 || hasNames) ? 1 : 0;
    }
    return 1;
}

void openAccessibilityPreferences() {
    NSString *urlString = @"x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility";
    [[NSWorkspace sharedWorkspace] openURL:[NSURL URLWithString:urlString]];
}

void openScreenRecordingPreferences() {
    NSString *urlString = @"x-apple.systempreferences:com.apple.preference.security?Privacy_ScreenCapture";
    [[NSWorkspace sharedWorkspace] openURL:[NSURL URLWithString:urlString]];
}
*/
import "C"
import (
	"fmt"
	"os/exec"
)

// BundleID 重置权限时使用的应用标识
const BundleID = "com.zoeyai.triggerclicker"

// Check 检查所需权限（不触发弹窗）
func Check() *Status {
	return newStatus(
		C.checkAccessibilityPermission() == 1,
		C.checkScreenRecordingPermission() == 1,
	)
}

// RequestAccessibility 请求辅助功能权限（触发系统弹窗）
func RequestAccessibility() bool {
	return C.requestAccessibilityPermission() == 1
}

// OpenSettings 打开缺少权限对应的系统设置页面
func OpenSettings(status *Status) {
	if !status.Accessibility {
		C.openAccessibilityPreferences()
	}
	if !status.ScreenRecording {
		C.openScreenRecordingPreferences()
	}
}

// Reset 通过 tccutil 重置本应用的权限记录
func Reset() error {
	for _, service := range []string{"Accessibility", "ScreenCapture"} {
		if out, err := exec.Command("tccutil", "reset", service, BundleID).CombinedOutput(); err != nil {
			return fmt.Errorf("重置 %s 权限失败: %v (%s)", service, err, out)
		}
	}
	return nil
}
