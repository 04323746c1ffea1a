package inference

import (
	"fmt"
	"sync/atomic"
)

// Pool fans Predict calls out across multiple Clients round-robin. Each
// client has its own batching loop and ORT session, so sessions can run
// in parallel on the GPU. ORT environment initialization is
// process-global; Client handles that internally.
type Pool struct {
	clients []*Client
	rr      atomic.Uint64
}

func NewClientPool(modelPath string, sessions int) (*Pool, error) {
	return NewClientPoolWithConfig(modelPath, sessions, ClientConfig{BatchSize: DefaultBatchSize, BatchTimeout: DefaultBatchTimeout})
}

func NewClientPoolWithConfig(modelPath string, sessions int, cfg ClientConfig) (*Pool, error) {
	if sessions <= 0 {
		sessions = 1
	}
	clients := make([]*Client, 0, sessions)
	for i := 0; i < sessions; i++ {
		c, err := NewClientWithConfig(modelPath, cfg)
		if err != nil {
			for _, created := range clients {
				_ = created.Close()
			}
			return nil, fmt.Errorf("create onnx client %d/%d: %w", i+1, sessions, err)
		}
		clients = append(clients, c)
	}
	return &Pool{clients: clients}, nil
}

func (p *Pool) Close() error {
	var firstErr error
	for _, c := range p.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Pool) Predict(features []float32) ([]float32, float32, error) {
	if len(p.clients) == 0 {
		return nil, 0, fmt.Errorf("onnx pool has no clients")
	}
	idx := int(p.rr.Add(1)-1) % len(p.clients)
	return p.clients[idx].Predict(features)
}

func (p *Pool) Stats() RuntimeStats {
	var out RuntimeStats
	var items, batches int64
	for _, c := range p.clients {
		st := c.Stats()
		batches += st.TotalBatches
		items += st.TotalItems
		out.QueueLen += st.QueueLen
		if st.LastBatchSize > out.LastBatchSize {
			out.LastBatchSize = st.LastBatchSize
		}
	}
	out.TotalBatches = batches
	out.TotalItems = items
	if batches > 0 {
		out.AvgBatchSize = float64(items) / float64(batches)
	}
	return out
}
