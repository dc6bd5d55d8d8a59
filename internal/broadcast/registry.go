// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package broadcast fans watch notifications out to connected observers.
package broadcast

import (
	"fmt"
	"log"
	"sync"
)

// QueueSize is how many messages an observer may fall behind before it is
// dropped as too slow.
const QueueSize = 64

// Observer is a connected client that can receive messages. The registry
// never closes an observer; its owner does.
type Observer interface {
	ID() string
	Send(msg []byte) error
}

// member pairs an observer with its outbound queue. A writer goroutine
// drains the queue so a stalled Send only holds up its own observer.
type member struct {
	o     Observer
	queue chan []byte
	quit  chan struct{}
}

type broadcastReq struct {
	msg   []byte
	reply chan int
}

// Registry owns the observer set in a single goroutine. All access goes
// through channels, so a broadcast never races with register or unregister.
type Registry struct {
	register   chan Observer
	unregister chan string
	broadcast  chan broadcastReq
	count      chan chan int
	failed     chan *member
	quit       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

// NewRegistry starts the registry goroutine.
func NewRegistry() *Registry {
	r := &Registry{
		register:   make(chan Observer),
		unregister: make(chan string),
		broadcast:  make(chan broadcastReq),
		count:      make(chan chan int),
		failed:     make(chan *member),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go r.loop()
	return r
}

// Register adds an observer. Registering an ID twice replaces the old entry.
func (r *Registry) Register(o Observer) {
	select {
	case r.register <- o:
	case <-r.quit:
	}
}

// Unregister removes an observer by ID. Unknown IDs are ignored.
func (r *Registry) Unregister(id string) {
	select {
	case r.unregister <- id:
	case <-r.quit:
	}
}

// Broadcast queues msg for every observer and returns how many accepted it.
// An observer whose queue is full is removed once the pass completes, as is
// one whose Send later fails.
func (r *Registry) Broadcast(msg []byte) int {
	req := broadcastReq{msg: msg, reply: make(chan int, 1)}
	select {
	case r.broadcast <- req:
	case <-r.quit:
		return 0
	}
	select {
	case n := <-req.reply:
		return n
	case <-r.done:
		return 0
	}
}

// Len returns the number of registered observers.
func (r *Registry) Len() int {
	reply := make(chan int, 1)
	select {
	case r.count <- reply:
	case <-r.quit:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-r.done:
		return 0
	}
}

// Close stops the registry goroutine and every writer. Later calls are
// no-ops.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.quit)
	})
	<-r.done
}

func (r *Registry) loop() {
	observers := make(map[string]*member)
	defer func() {
		for _, m := range observers {
			close(m.quit)
		}
		close(r.done)
	}()

	for {
		select {
		case <-r.quit:
			return
		case o := <-r.register:
			if old, ok := observers[o.ID()]; ok {
				close(old.quit)
			}
			m := &member{o: o, queue: make(chan []byte, QueueSize), quit: make(chan struct{})}
			observers[o.ID()] = m
			go r.write(m)
		case id := <-r.unregister:
			if m, ok := observers[id]; ok {
				close(m.quit)
				delete(observers, id)
			}
		case m := <-r.failed:
			// A replaced member may report late; only drop the current one.
			if observers[m.o.ID()] == m {
				close(m.quit)
				delete(observers, m.o.ID())
			}
		case reply := <-r.count:
			reply <- len(observers)
		case req := <-r.broadcast:
			req.reply <- deliver(observers, req.msg)
		}
	}
}

func deliver(observers map[string]*member, msg []byte) int {
	var slow []string
	queued := 0
	for id, m := range observers {
		select {
		case m.queue <- msg:
			queued++
		default:
			slow = append(slow, id)
		}
	}
	for _, id := range slow {
		log.Printf("Broadcast: dropping observer %s: queue full", id)
		close(observers[id].quit)
		delete(observers, id)
	}
	return queued
}

// write drains one observer's queue until it is removed or a send fails.
func (r *Registry) write(m *member) {
	for {
		select {
		case <-m.quit:
			return
		case msg := <-m.queue:
			if err := send(m.o, msg); err != nil {
				log.Printf("Broadcast: dropping observer %s: %v", m.o.ID(), err)
				select {
				case r.failed <- m:
				case <-m.quit:
				case <-r.quit:
				}
				return
			}
		}
	}
}

func send(o Observer, msg []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return o.Send(msg)
}
