//go:build darwin
// +build darwin

package controller

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Foundation -framework AppKit -framework IOKit

#import <Foundation/Foundation.h>
#import <AppKit/AppKit.h>
#import <IOKit/IOKitLib.h>
#import <IOKit/pwr_mgt/IOPMLib.h>
#import <IOKit/IOMessage.h>

void relaunchPowerEvent(int kind);

static io_connect_t powerPort;
static IONotificationPortRef powerNotify;
static io_object_t powerNotifier;
static CFRunLoopRef powerLoop;

static void powerCallback(void *ref, io_service_t service, natural_t type, void *arg) {
	if (type == kIOMessageSystemWillSleep) {
		relaunchPowerEvent(0);
		IOAllowPowerChange(powerPort, (long)arg);
	} else if (type == kIOMessageCanSystemSleep) {
		IOAllowPowerChange(powerPort, (long)arg);
	} else if (type == kIOMessageSystemHasPoweredOn) {
		relaunchPowerEvent(1);
	}
}

static int registerPower(void) {
	powerPort = IORegisterForSystemPower(NULL, &powerNotify, powerCallback, &powerNotifier);
	if (powerPort == 0) {
		return -1;
	}
	powerLoop = CFRunLoopGetCurrent();
	CFRunLoopAddSource(powerLoop, IONotificationPortGetRunLoopSource(powerNotify), kCFRunLoopDefaultMode);
	return 0;
}

// runPower blocks running the notification loop on the registering thread
static void runPower(void) {
	CFRunLoopRun();

	CFRunLoopRemoveSource(powerLoop, IONotificationPortGetRunLoopSource(powerNotify), kCFRunLoopDefaultMode);
	IODeregisterForSystemPower(&powerNotifier);
	IONotificationPortDestroy(powerNotify);
	IOServiceClose(powerPort);
	powerLoop = NULL;
}

static void unwatchPower(void) {
	if (powerLoop) {
		CFRunLoopStop(powerLoop);
	}
}

static void useAccessoryPolicy(void) {
	[NSApplication sharedApplication];
	[NSApp setActivationPolicy:NSApplicationActivationPolicyAccessory];
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"sync"
)

// PowerEvent is a system sleep or wake notification
type PowerEvent int

const (
	PowerEventSleep PowerEvent = iota
	PowerEventWake
)

var (
	powerMu      sync.Mutex
	powerHandler func(PowerEvent)
)

//export relaunchPowerEvent
func relaunchPowerEvent(kind C.int) {
	powerMu.Lock()
	handler := powerHandler
	powerMu.Unlock()
	if handler != nil {
		go handler(PowerEvent(kind))
	}
}

// WatchPowerEvents delivers sleep and wake notifications to handler until
// the returned stop function is called. Only one watcher is supported.
func WatchPowerEvents(handler func(PowerEvent)) (stop func(), err error) {
	powerMu.Lock()
	if powerHandler != nil {
		powerMu.Unlock()
		return nil, fmt.Errorf("power events are already being watched")
	}
	powerHandler = handler
	powerMu.Unlock()

	registered := make(chan C.int, 1)
	go func() {
		// The run loop belongs to the registering OS thread
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		rc := C.registerPower()
		registered <- rc
		if rc == 0 {
			C.runPower()
		}
	}()

	if rc := <-registered; rc != 0 {
		powerMu.Lock()
		powerHandler = nil
		powerMu.Unlock()
		return nil, fmt.Errorf("failed to register for system power notifications")
	}

	return func() {
		C.unwatchPower()
		powerMu.Lock()
		powerHandler = nil
		powerMu.Unlock()
	}, nil
}

// HideFromDock keeps the app out of the Dock and the app switcher
func HideFromDock() {
	C.useAccessoryPolicy()
}
