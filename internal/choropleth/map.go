package choropleth

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/boundary"
	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

// Map holds the last successfully built view model. A redraw that finds no
// data leaves it in place.
type Map struct {
	mu sync.RWMutex
	vm *ViewModel
}

// Redraw rebuilds the view model. On ErrNoData the diagnostic is logged, the
// previous model is kept, and the error is returned. Other errors also keep
// the previous model.
func (m *Map) Redraw(features *boundary.Collection, ix *temporal.Index, v Variable) error {
	vm, err := Build(features, ix, v)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			zap.L().Error("choropleth: no data available for "+v.Label+" on the selected date",
				zap.String("variable", v.Key),
				zap.String("date", ix.Date()),
			)
		} else {
			zap.L().Error("choropleth: redraw failed", zap.String("variable", v.Key), zap.Error(err))
		}
		return err
	}

	m.mu.Lock()
	m.vm = vm
	m.mu.Unlock()
	return nil
}

// Set replaces the view model directly.
func (m *Map) Set(vm *ViewModel) {
	m.mu.Lock()
	m.vm = vm
	m.mu.Unlock()
}

// Current returns the current view model, or nil before the first
// successful redraw.
func (m *Map) Current() *ViewModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vm
}
