// Package dashboard holds the control state and the map and table views
// that the server and CLI render from.
package dashboard

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

// SliderDates are the positions of the date slider.
var SliderDates = []string{"2024-01-01", "2024-07-01", "2025-01-01"}

// ErrSliderIndex is returned for a slider position outside SliderDates.
var ErrSliderIndex = eris.New("dashboard: slider index out of range")

// ErrUnknownVariable is returned when a selected variable is not in the
// view's catalog.
var ErrUnknownVariable = eris.New("dashboard: unknown variable")

// State is the control state shared by the views. Revision increases on
// every change that affects rendering.
type State struct {
	Variable   string `json:"variable"`
	Date       string `json:"date"`
	RegionType string `json:"region_type,omitempty"`
	DataType   string `json:"data_type,omitempty"`
	Revision   uint64 `json:"revision"`
}

// SetVariable selects the variable. Reports whether it changed.
func (s *State) SetVariable(key string) bool {
	if key == "" || key == s.Variable {
		return false
	}
	s.Variable = key
	s.Revision++
	return true
}

// SetDate selects the date after normalizing it to YYYY-MM-DD. An invalid
// date leaves the state unchanged.
func (s *State) SetDate(date string) (bool, error) {
	d, err := temporal.NormalizeDate(date)
	if err != nil {
		return false, err
	}
	if d == s.Date {
		return false, nil
	}
	s.Date = d
	s.Revision++
	return true, nil
}

// SetDateIndex selects the date at slider position i.
func (s *State) SetDateIndex(i int) (bool, error) {
	if i < 0 || i >= len(SliderDates) {
		return false, eris.Wrapf(ErrSliderIndex, "%d", i)
	}
	return s.SetDate(SliderDates[i])
}

// SetRegionType records the region-type radio. It does not affect
// rendering.
func (s *State) SetRegionType(t string) {
	s.RegionType = t
	zap.L().Info("dashboard: region type selected", zap.String("region_type", t))
}

// SetDataType records the data-type radio. It does not affect rendering.
func (s *State) SetDataType(t string) {
	s.DataType = t
	zap.L().Info("dashboard: data type selected", zap.String("data_type", t))
}
