package device

import (
	"sync"
	"time"

	"github.com/lumenrender/lumen/log"
)

const tileQueueDepth = 64

// A CPU compute backend. Tile requests are consumed by a pool of worker
// goroutines, one per hardware thread; each request renders its tile
// rectangle with the procedural kernel and reports completion on the
// request's result channel.
type cpuDevice struct {
	mu     sync.Mutex
	logger log.Logger

	info   Info
	queue  chan *TileRequest
	wg     sync.WaitGroup
	closed bool
}

func newCPUDevice(info Info) *cpuDevice {
	d := &cpuDevice{
		logger: log.New("cpu device"),
		info:   info,
		queue:  make(chan *TileRequest, tileQueueDepth),
	}

	threads := info.Threads
	if threads <= 0 {
		threads = 1
	}
	for i := 0; i < threads; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	d.logger.Infof("started %s with %d workers", info.Name, threads)
	return d
}

// Get device id.
func (d *cpuDevice) ID() string {
	return d.info.ID
}

// Get device name.
func (d *cpuDevice) Name() string {
	return d.info.Name
}

// Get device type.
func (d *cpuDevice) Type() Type {
	return TypeCPU
}

// Allocate a device-resident buffer.
func (d *cpuDevice) Alloc(name string, elements int) (*Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}
	return newBuffer(name, elements), nil
}

// Enqueue tile request. The closed check and the queue send share one
// critical section so a concurrent Close cannot close the queue between
// them; Close waits for the lock, never for the workers' queue space.
func (d *cpuDevice) Enqueue(req *TileRequest) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		req.Result <- TileResult{Req: req, Err: ErrDeviceClosed}
		return
	}
	d.queue <- req
	d.mu.Unlock()
}

// Shade evaluates a bake chunk synchronously on the calling goroutine.
func (d *cpuDevice) Shade(req *ShadeRequest) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDeviceClosed
	}
	d.mu.Unlock()

	if req.Scene == nil {
		return ErrNoScene
	}

	shadePoints(req)
	return nil
}

// Shutdown device. In-flight tile requests complete before workers exit.
func (d *cpuDevice) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.queue)
	d.wg.Wait()
	d.logger.Infof("stopped %s", d.info.Name)
}

func (d *cpuDevice) worker() {
	defer d.wg.Done()
	for req := range d.queue {
		start := time.Now()
		err := renderTile(req)
		req.Result <- TileResult{
			Req:        req,
			RenderTime: time.Since(start),
			Err:        err,
		}
	}
}
