package websocket

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"gatherly/pkg/types"
)

var fakeIDs atomic.Int64

// fakeConn records writes and closes
type fakeConn struct {
	id         string
	userID     types.UserID
	mu         sync.Mutex
	written    []interface{}
	writeErr   error
	closes     int
	closePanic bool
	closeErr   error
}

func newFakeConn(userID types.UserID) *fakeConn {
	return &fakeConn{id: fmt.Sprintf("fake-%d", fakeIDs.Add(1)), userID: userID}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) UserID() int64 { return f.userID }

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closes++
	panicking := f.closePanic
	f.mu.Unlock()
	if panicking {
		panic("close exploded")
	}
	return f.closeErr
}

func (f *fakeConn) writes() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.written...)
}

func (f *fakeConn) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

var errBrokenPipe = errors.New("broken pipe")
