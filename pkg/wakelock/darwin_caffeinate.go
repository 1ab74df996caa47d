//go:build darwin && !cgo

package wakelock

import (
	"os"
	"os/exec"
	"strconv"
	"sync"
)

// caffeinateAssertions stands in for IOKit in builds without cgo. Each
// assertion is a caffeinate child holding -d (display) until killed; the
// child's pid doubles as the assertion id.
type caffeinateAssertions struct {
	mu       sync.Mutex
	children map[uint32]*exec.Cmd
}

func newAssertionAPI() assertionAPI {
	return &caffeinateAssertions{children: make(map[uint32]*exec.Cmd)}
}

func (c *caffeinateAssertions) available() bool {
	_, err := exec.LookPath("caffeinate")
	return err == nil
}

func (c *caffeinateAssertions) create(_, _ string) (uint32, int32) {
	path, err := exec.LookPath("caffeinate")
	if err != nil {
		return 0, ioReturnError
	}

	// -d: prevent display sleep
	// -w <pid>: exit with this process so a crash cannot leak the assertion
	cmd := exec.Command(path, "-d", "-w", strconv.Itoa(os.Getpid()))
	if err := cmd.Start(); err != nil {
		return 0, ioReturnError
	}
	// Reap in background so the child does not linger as a zombie.
	go cmd.Wait()

	id := uint32(cmd.Process.Pid)
	c.mu.Lock()
	c.children[id] = cmd
	c.mu.Unlock()
	return id, ioReturnSuccess
}

func (c *caffeinateAssertions) release(id uint32) int32 {
	c.mu.Lock()
	cmd, ok := c.children[id]
	delete(c.children, id)
	c.mu.Unlock()

	if !ok {
		return ioReturnNotFound
	}
	if err := cmd.Process.Kill(); err != nil {
		return ioReturnError
	}
	return ioReturnSuccess
}
