package cpu

import (
	"os"
	"sync"
	"time"
)

// FileDescriptor is one open guest file descriptor and the host file
// backing it. The three standard streams carry no host file: syscall
// handlers route them to the Machine's stdout/stderr writers instead.
type FileDescriptor struct {
	HostFile *os.File
	Path     string
	Flags    int
	IsOpen   bool
}

// FDTable maps guest file-descriptor numbers to host files for the
// file-I/O syscalls. Descriptor numbers are uint32 because that is the
// register width they arrive in (a0 on openat, close, read, write).
type FDTable struct {
	fds    map[uint32]*FileDescriptor
	nextFD uint32
	mu     sync.Mutex
}

// NewFDTable creates a table with stdin/stdout/stderr pre-opened and
// guest descriptors allocated from 3 upward.
func NewFDTable() *FDTable {
	t := &FDTable{
		fds:    make(map[uint32]*FileDescriptor),
		nextFD: 3,
	}
	t.fds[0] = &FileDescriptor{Path: "stdin", IsOpen: true}
	t.fds[1] = &FileDescriptor{Path: "stdout", IsOpen: true}
	t.fds[2] = &FileDescriptor{Path: "stderr", IsOpen: true}
	return t
}

// Open opens a host file on the guest's behalf and returns the new
// guest descriptor number.
func (t *FDTable) Open(path string, flags int, mode os.FileMode) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hostFile, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return 0, err
	}

	fd := t.nextFD
	t.nextFD++
	t.fds[fd] = &FileDescriptor{
		HostFile: hostFile,
		Path:     path,
		Flags:    flags,
		IsOpen:   true,
	}
	return fd, nil
}

// Close closes a guest descriptor. Closing a standard stream marks it
// closed without touching the host's own streams.
func (t *FDTable) Close(fd uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.fds[fd]
	if !ok || !entry.IsOpen {
		return os.ErrInvalid
	}
	if fd <= 2 {
		entry.IsOpen = false
		return nil
	}
	if entry.HostFile != nil {
		if err := entry.HostFile.Close(); err != nil {
			return err
		}
	}
	entry.HostFile = nil
	entry.IsOpen = false
	return nil
}

// Get returns the descriptor entry if it exists and is open.
func (t *FDTable) Get(fd uint32) (*FileDescriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.fds[fd]
	if !ok || !entry.IsOpen {
		return nil, false
	}
	return entry, true
}

// IsOpen reports whether fd refers to an open descriptor.
func (t *FDTable) IsOpen(fd uint32) bool {
	_, ok := t.Get(fd)
	return ok
}

// hostFile fetches the backing host file for fd, rejecting the three
// standard streams: those are serviced by the Machine's writers, not
// by the table.
func (t *FDTable) hostFile(fd uint32) (*os.File, error) {
	t.mu.Lock()
	entry, ok := t.fds[fd]
	t.mu.Unlock()

	if !ok || !entry.IsOpen || fd <= 2 || entry.HostFile == nil {
		return nil, os.ErrInvalid
	}
	return entry.HostFile, nil
}

// Read reads from fd into buf.
func (t *FDTable) Read(fd uint32, buf []byte) (int, error) {
	f, err := t.hostFile(fd)
	if err != nil {
		return 0, err
	}
	return f.Read(buf)
}

// Write writes buf to fd.
func (t *FDTable) Write(fd uint32, buf []byte) (int, error) {
	f, err := t.hostFile(fd)
	if err != nil {
		return 0, err
	}
	return f.Write(buf)
}

// Seek repositions fd.
func (t *FDTable) Seek(fd uint32, offset int64, whence int) (int64, error) {
	f, err := t.hostFile(fd)
	if err != nil {
		return 0, err
	}
	return f.Seek(offset, whence)
}

// Stat returns file information for fd. The standard streams report a
// stub character device.
func (t *FDTable) Stat(fd uint32) (os.FileInfo, error) {
	entry, ok := t.Get(fd)
	if !ok {
		return nil, os.ErrInvalid
	}
	if fd <= 2 {
		return &stdioFileInfo{name: entry.Path}, nil
	}
	if entry.HostFile == nil {
		return nil, os.ErrInvalid
	}
	return entry.HostFile.Stat()
}

// stdioFileInfo is a stub FileInfo for stdin/stdout/stderr.
type stdioFileInfo struct {
	name string
}

func (f *stdioFileInfo) Name() string       { return f.name }
func (f *stdioFileInfo) Size() int64        { return 0 }
func (f *stdioFileInfo) Mode() os.FileMode  { return os.ModeCharDevice | 0666 }
func (f *stdioFileInfo) ModTime() time.Time { return time.Time{} }
func (f *stdioFileInfo) IsDir() bool        { return false }
func (f *stdioFileInfo) Sys() interface{}   { return nil }
