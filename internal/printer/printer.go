// This file is part of https://github.com/racingmars/tn3270/
// Licensed under the MIT license. See LICENSE in the project root for
// license information.

// Package printer implements the SCS (SNA Character String) data path for
// a 3287-class printer session: parsing the SCS control-code stream into
// lines and pages, tracking job lifecycle, and the error/recovery envelope
// around printer I/O.
package printer

import (
	"time"

	"github.com/google/uuid"
)

// SCS control codes.
const (
	CtlCR       byte = 0x0D
	CtlNL       byte = 0x15
	CtlLF       byte = 0x25
	CtlFF       byte = 0x0C
	CtlHT       byte = 0x05
	CtlVT       byte = 0x0B
	CtlPrintEOJ byte = 0x08
)

// JobState is the lifecycle state of a printer job.
type JobState int

const (
	JobActive JobState = iota
	JobPaused
	JobCompleted
	JobError
)

func (s JobState) String() string {
	switch s {
	case JobActive:
		return "active"
	case JobPaused:
		return "paused"
	case JobCompleted:
		return "completed"
	case JobError:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultMaxBufferBytes is the default cap on a job's retained byte
// buffer before the sliding window starts dropping the oldest bytes.
const DefaultMaxBufferBytes = 1 << 20 // 1 MiB

// Job is one print job's accumulated state: an accumulating byte buffer
// with a maximum retained size, state, counters, observed SCS
// control-code history, timestamps, and last-error-message.
type Job struct {
	ID                 uuid.UUID
	State              JobState
	Line               int
	Page               int
	History            []byte // every SCS control code observed, in order
	StartedAt, EndedAt time.Time
	LastError          string

	maxBuf  int
	buf     []byte
	curLine []byte
	dropped int
}

// NewJob starts a new active job with the given retained-buffer cap (0
// selects DefaultMaxBufferBytes). now is passed in rather than read from
// the clock so callers control job timestamps deterministically.
func NewJob(maxBuf int, now time.Time) *Job {
	if maxBuf <= 0 {
		maxBuf = DefaultMaxBufferBytes
	}
	return &Job{ID: uuid.New(), State: JobActive, maxBuf: maxBuf, StartedAt: now}
}

// Buffer returns the job's retained output, oldest-dropped-first once the
// sliding window has engaged.
func (j *Job) Buffer() []byte { return j.buf }

// Dropped returns how many bytes have been evicted from the front of the
// buffer by the sliding window.
func (j *Job) Dropped() int { return j.dropped }

// Finalize completes the job directly, for a dedicated TN3270E PRINT-EOJ
// record rather than an in-band SCS PRINT-EOJ control code: it flushes
// any partial line, marks the job Completed, and stamps EndedAt.
func (j *Job) Finalize(now time.Time) {
	j.flushLine()
	j.State = JobCompleted
	j.EndedAt = now
}

func (j *Job) appendToBuffer(b []byte) {
	j.buf = append(j.buf, b...)
	if over := len(j.buf) - j.maxBuf; over > 0 {
		j.buf = j.buf[over:]
		j.dropped += over
	}
}

func (j *Job) flushLine() {
	j.appendToBuffer(j.curLine)
	j.appendToBuffer([]byte{'\n'})
	j.curLine = j.curLine[:0]
	j.Line++
}

// Metadata is the shape of a structured-field payload inside an SCS
// stream (e.g. Set-Print-Partition). Parser.Feed does not recognize SCS
// structured fields, so nothing in this package produces a Metadata value.
type Metadata struct {
	ID      byte
	Payload []byte
}

// Parser decodes an SCS byte stream into Job state, one job at a time.
// Ownership of the current Job belongs to the caller (the printer
// session); Parser only mutates whichever Job it is given.
type Parser struct {
	DecodeByte func(byte) rune
}

// NewParser returns a Parser that decodes text bytes with decode (the
// codepage's DecodeByte).
func NewParser(decode func(byte) rune) *Parser {
	return &Parser{DecodeByte: decode}
}

// Feed processes one SCS-DATA record's payload into job and reports
// whether a PRINT-EOJ control code was seen. now is used to stamp EndedAt
// if a PRINT-EOJ is observed.
func (p *Parser) Feed(job *Job, payload []byte, now time.Time) (eoj bool) {
	for _, b := range payload {
		switch b {
		case CtlCR, CtlNL, CtlLF, CtlFF, CtlHT, CtlVT, CtlPrintEOJ:
			job.History = append(job.History, b)
		}
		switch b {
		case CtlCR:
			job.curLine = job.curLine[:0]
		case CtlNL, CtlLF:
			job.flushLine()
		case CtlFF:
			job.Page++
		case CtlHT, CtlVT:
			job.curLine = append(job.curLine, ' ')
		case CtlPrintEOJ:
			job.flushLine()
			job.State = JobCompleted
			job.EndedAt = now
			eoj = true
		default:
			if p.DecodeByte != nil {
				job.curLine = append(job.curLine, []byte(string(p.DecodeByte(b)))...)
				continue
			}
			job.curLine = append(job.curLine, b)
		}
	}
	return eoj
}

// JobRing is a bounded ring of completed jobs, the "push into the
// completed-jobs ring" policy: once full, the oldest completed job is
// evicted to make room for the newest.
type JobRing struct {
	cap  int
	jobs []*Job
}

// NewJobRing returns a ring that retains at most n completed jobs.
func NewJobRing(n int) *JobRing {
	if n <= 0 {
		n = 1
	}
	return &JobRing{cap: n}
}

// Push adds a completed job, evicting the oldest if the ring is full.
func (r *JobRing) Push(j *Job) {
	r.jobs = append(r.jobs, j)
	if over := len(r.jobs) - r.cap; over > 0 {
		r.jobs = r.jobs[over:]
	}
}

// Jobs returns the retained jobs, oldest first.
func (r *JobRing) Jobs() []*Job { return r.jobs }
