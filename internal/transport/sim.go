package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// Block is one scripted response to a ReadBegin/ReadData sequence: the
// full byte stream (header + payload + terminator, or whatever the
// test needs), an optional chunk size emulating the USBTMC 64-byte
// packet ceiling, and byte offsets at which a single -1 stall is
// injected before the read resumes.
type Block struct {
	Data         []byte
	ChunkSize    int // 0 = hand back everything in one ReadData call
	StallOffsets []int
}

// Sim is a scripted fake Transport for tests and the demo CLI. It has
// no notion of a real device — every reply is pre-loaded by the
// caller, the same stub-per-interface shape as the fakeClient pattern
// used for poller tests elsewhere in the corpus.
type Sim struct {
	Sent []string

	responses map[string][]string
	blocks    []Block
	blockIdx  int
	cur       *Block
	pos       int
	stalled   map[int]bool

	SendErr                error
	ForceReadCompleteFalse  bool
}

func NewSim() *Sim {
	return &Sim{responses: make(map[string][]string)}
}

// SetResponse scripts the reply (or sequence of replies, consumed in
// order and then held at the last value) for an exact query string.
func (s *Sim) SetResponse(query string, values ...string) {
	s.responses[query] = values
}

// QueueBlock appends a waveform block to be served by the next
// ReadBegin/ReadData cycle.
func (s *Sim) QueueBlock(b Block) {
	s.blocks = append(s.blocks, b)
}

func (s *Sim) Send(cmd string) error {
	s.Sent = append(s.Sent, cmd)
	return s.SendErr
}

func (s *Sim) reply(query string) (string, error) {
	s.Sent = append(s.Sent, query)
	seq, ok := s.responses[query]
	if !ok || len(seq) == 0 {
		return "", fmt.Errorf("sim: 未设置查询 %q 的响应", query)
	}
	v := seq[0]
	if len(seq) > 1 {
		s.responses[query] = seq[1:]
	}
	return v, nil
}

func (s *Sim) GetString(query string) (string, error) {
	return s.reply(query)
}

func (s *Sim) GetInt(query string) (int, error) {
	v, err := s.reply(query)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

func (s *Sim) GetFloat(query string) (float64, error) {
	v, err := s.reply(query)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

func (s *Sim) GetBool(query string) (bool, error) {
	v, err := s.reply(query)
	if err != nil {
		return false, err
	}
	v = strings.ToUpper(strings.TrimSpace(v))
	return v == "1" || v == "ON" || v == "TRUE", nil
}

func (s *Sim) ReadBegin() error {
	if s.blockIdx >= len(s.blocks) {
		return fmt.Errorf("sim: 没有更多排队的数据块")
	}
	s.cur = &s.blocks[s.blockIdx]
	s.blockIdx++
	s.pos = 0
	s.stalled = make(map[int]bool)
	return nil
}

func (s *Sim) ReadData(buf []byte) int {
	if s.cur == nil {
		return 0
	}
	for _, off := range s.cur.StallOffsets {
		if off == s.pos && !s.stalled[off] {
			s.stalled[off] = true
			return -1
		}
	}
	remaining := len(s.cur.Data) - s.pos
	if remaining <= 0 {
		return 0
	}
	n := len(buf)
	if n > remaining {
		n = remaining
	}
	if s.cur.ChunkSize > 0 && n > s.cur.ChunkSize {
		n = s.cur.ChunkSize
	}
	copy(buf, s.cur.Data[s.pos:s.pos+n])
	s.pos += n
	return n
}

func (s *Sim) ReadComplete() bool {
	if s.ForceReadCompleteFalse {
		return false
	}
	return s.cur == nil || s.pos >= len(s.cur.Data)
}
