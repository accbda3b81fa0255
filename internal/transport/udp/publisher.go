// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	applog "denoiser/internal/log"
)

// SpectrumSource is what the publisher samples on every tick. The playback
// controller implements it, so the publisher keeps working across source
// switches.
type SpectrumSource interface {
	BinCount() int
	MagnitudesInto(dst []float64) error
	Level() float64
}

// UDPPublisher periodically samples a SpectrumSource, packs the frame into the
// binary layout below and sends it with a UDPSender. It runs in its own
// goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	source   SpectrumSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Reused on every tick.
	magBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher. An interval <= 0 defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, source SpectrumSource) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("UDPPublisher: spectrum source cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	bins := source.BinCount()
	if bins <= 0 || bins > math.MaxUint16 {
		return nil, fmt.Errorf("UDPPublisher: unsupported bin count %d", bins)
	}
	applog.Debugf("UDPPublisher: Initializing (Interval: %s, Bins: %d)", interval, bins)

	return &UDPPublisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		magBuffer:    make([]float64, bins),
		f32Buffer:    make([]float32, bins),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies so the goroutine never reads the fields Stop resets.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call repeatedly.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP packet layout (big-endian):

	offset  size   field
	0       4      sequence number (uint32, starts at 1)
	4       8      timestamp (int64, ns since epoch)
	12      4      RMS level (float32)
	16      2      magnitude count N (uint16)
	18      N*4    magnitudes (float32)
*/

const packetHeaderSize = 18

// Packet is a decoded spectrum datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  time.Time
	Level      float32
	Magnitudes []float32
}

func (p *UDPPublisher) publish() {
	if err := p.source.MagnitudesInto(p.magBuffer); err != nil {
		applog.Errorf("UDPPublisher: Error getting magnitudes: %v", err)
		return
	}
	for i, v := range p.magBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	err := encodePacket(p.packetBuffer, p.sequenceNum, time.Now(), float32(p.source.Level()), p.f32Buffer)
	if err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	// Send logs its own failures.
	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

func encodePacket(buf *bytes.Buffer, seq uint32, ts time.Time, level float32, mags []float32) error {
	buf.Reset()
	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, ts.UnixNano())
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, level)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(mags)))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, mags)
	}
	return err
}

// DecodePacket parses one datagram produced by the publisher.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < packetHeaderSize {
		return nil, fmt.Errorf("packet too short: %d bytes", len(data))
	}
	be := binary.BigEndian
	n := int(be.Uint16(data[16:18]))
	if len(data) != packetHeaderSize+n*4 {
		return nil, fmt.Errorf("packet declares %d magnitudes but carries %d bytes", n, len(data)-packetHeaderSize)
	}

	pkt := &Packet{
		Sequence:   be.Uint32(data[0:4]),
		Timestamp:  time.Unix(0, int64(be.Uint64(data[4:12]))),
		Level:      math.Float32frombits(be.Uint32(data[12:16])),
		Magnitudes: make([]float32, n),
	}
	for i := range pkt.Magnitudes {
		off := packetHeaderSize + i*4
		pkt.Magnitudes[i] = math.Float32frombits(be.Uint32(data[off : off+4]))
	}
	return pkt, nil
}

// Close stops the publisher.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ io.Closer = (*UDPPublisher)(nil)
