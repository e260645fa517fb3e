// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.
// Modifications (c): ported from raw syscall to golang.org/x/sys/windows.

package memory

import (
	"errors"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mmap on Windows is a two-step process.
// First, we call CreateFileMapping to get a handle.
// Then, we call MapViewOfFile to get an actual pointer into memory.

var (
	handleMapMu sync.Mutex
	handleMap   = map[uintptr]windows.Handle{}
)

func mmap0(size int) ([]byte, error) {
	flProtect := uint32(windows.PAGE_READWRITE)
	dwDesiredAccess := uint32(windows.FILE_MAP_WRITE)

	maxSizeHigh := uint32(int64(size) >> 32)
	maxSizeLow := uint32(int64(size) & 0xFFFFFFFF)
	h, err := windows.CreateFileMapping(windows.Handle(^uintptr(0)), nil, flProtect, maxSizeHigh, maxSizeLow, nil)
	if h == 0 {
		return nil, os.NewSyscallError("CreateFileMapping", err)
	}

	addr, err := windows.MapViewOfFile(h, dwDesiredAccess, 0, 0, uintptr(size))
	if addr == 0 {
		return nil, os.NewSyscallError("MapViewOfFile", err)
	}

	if addr&uintptr(osPageMask) != 0 {
		panic("internal error")
	}

	handleMapMu.Lock()
	handleMap[addr] = h
	handleMapMu.Unlock()

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func unmap(addr unsafe.Pointer, size int) error {
	// Lock the UnmapViewOfFile along with the handleMap deletion.
	// As soon as we unmap the view, the OS is free to give the
	// same addr to another new map. We don't want another goroutine
	// to insert and remove the same addr into handleMap while
	// we're trying to remove our old addr/handle pair.
	err := windows.UnmapViewOfFile(uintptr(addr))
	if err != nil {
		return err
	}

	handleMapMu.Lock()
	handle, ok := handleMap[uintptr(addr)]
	if ok {
		delete(handleMap, uintptr(addr))
	}
	handleMapMu.Unlock()

	if !ok {
		// should be impossible; we would've errored above
		return errors.New("unknown base address")
	}

	e := windows.CloseHandle(handle)
	return os.NewSyscallError("CloseHandle", e)
}
