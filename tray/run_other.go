//go:build !darwin

package tray

func onMain(fn func()) { fn() }
