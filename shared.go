package rpcflood

import (
	"sync"
)

// SharedDataSlice hands out items round-robin to concurrent attackers
type SharedDataSlice struct {
	*sync.Mutex
	Index int
	Data  []interface{}
}

func NewSharedDataSlice(data []interface{}) *SharedDataSlice {
	return &SharedDataSlice{
		Mutex: &sync.Mutex{},
		Index: 0,
		Data:  data,
	}
}

func (m *SharedDataSlice) Get() interface{} {
	m.Lock()
	defer m.Unlock()
	if len(m.Data) == 0 {
		return nil
	}
	if m.Index > len(m.Data)-1 {
		m.Index = 0
	}
	data := m.Data[m.Index]
	m.Index++
	return data
}

func (m *SharedDataSlice) Add(d interface{}) {
	m.Lock()
	defer m.Unlock()
	m.Data = append(m.Data, d)
}

func (m *SharedDataSlice) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.Data)
}
