package render

import (
	"image/color"
	"runtime"
	"sync"

	"aquarium/internal/engine"
)

// parallelThreshold is the bubble count below which chunking overhead
// costs more than it saves; small frames render sequentially.
const parallelThreshold = 30

// bubbleJob is a unit of bubble rendering work over a shared canvas.
type bubbleJob struct {
	bubbles    []engine.BubbleSnapshot
	canvas     *pixelCanvas
	project    func(wx, wy float64) (float64, float64)
	zoom       float64
	resultChan chan<- struct{}
}

// BubbleRenderPool fans bubble drawing out over a fixed set of worker
// goroutines. Workers write into the shared frame buffer; bubble chunks
// may touch overlapping pixels, which is acceptable for translucent
// particles.
type BubbleRenderPool struct {
	numWorkers int
	jobChan    chan bubbleJob
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex
}

// NewBubbleRenderPool creates a pool. Zero workers means NumCPU, capped.
func NewBubbleRenderPool(numWorkers int) *BubbleRenderPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > 16 {
		numWorkers = 16
	}
	return &BubbleRenderPool{
		numWorkers: numWorkers,
		jobChan:    make(chan bubbleJob, numWorkers*2),
	}
}

// Start launches the workers.
func (p *BubbleRenderPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop drains and stops the workers.
func (p *BubbleRenderPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.jobChan)
	p.wg.Wait()
}

func (p *BubbleRenderPool) worker() {
	defer p.wg.Done()
	for job := range p.jobChan {
		renderBubbleChunk(job)
		if job.resultChan != nil {
			job.resultChan <- struct{}{}
		}
	}
}

// Render draws all bubbles, in parallel when the count justifies it.
func (p *BubbleRenderPool) Render(canvas *pixelCanvas, bubbles []engine.BubbleSnapshot, project func(wx, wy float64) (float64, float64), zoom float64) {
	if len(bubbles) == 0 {
		return
	}

	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	if !running || len(bubbles) < parallelThreshold {
		renderBubbleChunk(bubbleJob{bubbles: bubbles, canvas: canvas, project: project, zoom: zoom})
		return
	}

	chunkSize := (len(bubbles) + p.numWorkers - 1) / p.numWorkers
	results := make(chan struct{}, p.numWorkers)
	jobs := 0
	for start := 0; start < len(bubbles); start += chunkSize {
		end := start + chunkSize
		if end > len(bubbles) {
			end = len(bubbles)
		}
		p.jobChan <- bubbleJob{
			bubbles:    bubbles[start:end],
			canvas:     canvas,
			project:    project,
			zoom:       zoom,
			resultChan: results,
		}
		jobs++
	}
	for i := 0; i < jobs; i++ {
		<-results
	}
}

var (
	bubbleBody = color.RGBA{R: 180, G: 220, B: 255}
	bubbleRim  = color.RGBA{R: 230, G: 245, B: 255}
)

func renderBubbleChunk(job bubbleJob) {
	for _, b := range job.bubbles {
		alpha := b.Alpha
		if alpha <= 0 {
			continue
		}
		if alpha > 1 {
			alpha = 1
		}

		sx, sy := job.project(b.X, b.Y)
		radius := b.Radius * job.zoom
		if radius < 1 {
			radius = 1
		}
		cx, cy := int(sx+0.5), int(sy+0.5)

		body := bubbleBody
		body.A = uint8(alpha * 110)
		job.canvas.fillCircle(cx, cy, radius, body)

		rim := bubbleRim
		rim.A = uint8(alpha * 200)
		job.canvas.ringCircle(cx, cy, radius, 1, rim)

		// Specular highlight, upper-left quadrant
		if radius >= 3 {
			hl := color.RGBA{R: 255, G: 255, B: 255, A: uint8(alpha * 230)}
			job.canvas.fillCircle(cx-int(radius/3), cy-int(radius/3), radius/4, hl)
		}
	}
}
