// Package inference runs the value/policy network through ONNX Runtime.
// A Client owns one ORT session and batches concurrent Predict calls so
// many self-play workers share a single GPU dispatch.
package inference

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/drakewald/azul-engine/executor/convert"
)

// ErrModelLoad wraps every failure to locate or open a model file.
var ErrModelLoad = errors.New("model load failure")

// Predictor is the raw network interface: a feature vector in, policy
// logits and a scalar value (current player's perspective) out.
type Predictor interface {
	Predict(features []float32) (policy []float32, value float32, err error)
}

const (
	DefaultBatchSize    = 64
	DefaultBatchTimeout = 1 * time.Millisecond
)

type ClientConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
}

type inferenceRequest struct {
	input    []float32
	respChan chan inferenceResponse
}

type inferenceResponse struct {
	policy []float32
	value  float32
	err    error
}

// RuntimeStats is a point-in-time snapshot of batching behavior.
type RuntimeStats struct {
	TotalBatches  int64
	TotalItems    int64
	LastBatchSize int64
	QueueLen      int
	AvgBatchSize  float64
}

// errClientClosed fails requests caught in flight by Close.
var errClientClosed = errors.New("inference client closed")

// Client implements Predictor over a single ORT session with request
// batching.
type Client struct {
	session      *ort.DynamicAdvancedSession
	requestsChan chan inferenceRequest
	cfg          ClientConfig

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	totalBatches  atomic.Int64
	totalItems    atomic.Int64
	lastBatchSize atomic.Int64
}

var ortInitOnce sync.Once
var ortInitErr error

func NewClient(modelPath string) (*Client, error) {
	return NewClientWithConfig(modelPath, ClientConfig{BatchSize: DefaultBatchSize, BatchTimeout: DefaultBatchTimeout})
}

func NewClientWithConfig(modelPath string, cfg ClientConfig) (*Client, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, modelPath, err)
	}

	if runtime.GOOS == "linux" {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else {
			cwd, _ := os.Getwd()
			for _, name := range []string{"libonnxruntime.so", "libonnxruntime.so.1"} {
				abs := filepath.Join(cwd, name)
				if _, err := os.Stat(abs); err == nil {
					ort.SetSharedLibraryPath(abs)
					break
				}
			}
		}
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("%w: init onnxruntime: %v", ErrModelLoad, ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: session options: %v", ErrModelLoad, err)
	}
	defer options.Destroy()

	// Many workers call in concurrently; keep ORT's own threading out of
	// the way.
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	if cudaOptions, err := ort.NewCUDAProviderOptions(); err == nil {
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err == nil {
			// CUDA active; CPU fallback otherwise.
		}
		cudaOptions.Destroy()
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"policy", "value"}, options)
	if err != nil {
		return nil, fmt.Errorf("%w: create session for %s: %v", ErrModelLoad, modelPath, err)
	}

	client := &Client{
		session:      session,
		cfg:          cfg,
		requestsChan: make(chan inferenceRequest, cfg.BatchSize*2),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	go client.batchLoop()
	return client, nil
}

// Close stops the batching loop and destroys the ORT session. Callers
// must not issue new Predict calls after Close; requests still queued
// when it runs are failed rather than left hanging.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.stopped
		err = c.session.Destroy()
	})
	return err
}

func (c *Client) Stats() RuntimeStats {
	batches := c.totalBatches.Load()
	items := c.totalItems.Load()
	avg := 0.0
	if batches > 0 {
		avg = float64(items) / float64(batches)
	}
	return RuntimeStats{
		TotalBatches:  batches,
		TotalItems:    items,
		LastBatchSize: c.lastBatchSize.Load(),
		QueueLen:      len(c.requestsChan),
		AvgBatchSize:  avg,
	}
}

// Predict blocks until the batching loop runs this input. The features
// slice is copied before queueing; pooled buffers can be returned
// immediately after the call.
func (c *Client) Predict(features []float32) ([]float32, float32, error) {
	input := make([]float32, convert.InputSize)
	copy(input, features)

	respChan := make(chan inferenceResponse, 1)
	c.requestsChan <- inferenceRequest{input: input, respChan: respChan}
	resp := <-respChan
	return resp.policy, resp.value, resp.err
}

func (c *Client) batchLoop() {
	defer close(c.stopped)

	batchInput := make([]float32, 0, c.cfg.BatchSize*convert.InputSize)
	requests := make([]inferenceRequest, 0, c.cfg.BatchSize)

	ticker := time.NewTicker(c.cfg.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			// Drain whatever was queued so no Predict caller blocks.
			for {
				select {
				case req := <-c.requestsChan:
					requests = append(requests, req)
				default:
					c.failBatch(requests, errClientClosed)
					return
				}
			}
		case req := <-c.requestsChan:
			requests = append(requests, req)
			batchInput = append(batchInput, req.input...)
			if len(requests) >= c.cfg.BatchSize {
				c.runBatch(requests, batchInput)
				requests = requests[:0]
				batchInput = batchInput[:0]
			}
		case <-ticker.C:
			if len(requests) > 0 {
				c.runBatch(requests, batchInput)
				requests = requests[:0]
				batchInput = batchInput[:0]
			}
		}
	}
}

func (c *Client) runBatch(requests []inferenceRequest, batchInput []float32) {
	n := int64(len(requests))

	inputTensor, err := ort.NewTensor(ort.NewShape(n, convert.InputSize), batchInput)
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer inputTensor.Destroy()

	policyTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, convert.PolicySize))
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer policyTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, 1))
	if err != nil {
		c.failBatch(requests, err)
		return
	}
	defer valueTensor.Destroy()

	if err := c.session.Run([]ort.Value{inputTensor}, []ort.Value{policyTensor, valueTensor}); err != nil {
		c.failBatch(requests, err)
		return
	}

	c.totalBatches.Add(1)
	c.totalItems.Add(n)
	c.lastBatchSize.Store(n)

	policyData := policyTensor.GetData()
	valueData := valueTensor.GetData()
	for i, req := range requests {
		policy := make([]float32, convert.PolicySize)
		copy(policy, policyData[i*convert.PolicySize:(i+1)*convert.PolicySize])
		req.respChan <- inferenceResponse{policy: policy, value: valueData[i]}
	}
}

func (c *Client) failBatch(requests []inferenceRequest, err error) {
	for _, req := range requests {
		req.respChan <- inferenceResponse{err: err}
	}
}
