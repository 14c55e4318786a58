package tray

import "golang.design/x/hotkey/mainthread"

// onMain runs fn on the main thread, which AppKit requires.
func onMain(fn func()) { mainthread.Call(fn) }
