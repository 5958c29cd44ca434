package dashboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

func TestState_SetVariable(t *testing.T) {
	var s State
	assert.True(t, s.SetVariable("births"))
	assert.False(t, s.SetVariable("births"))
	assert.False(t, s.SetVariable(""))
	assert.Equal(t, "births", s.Variable)
	assert.Equal(t, uint64(1), s.Revision)
}

func TestState_SetDate(t *testing.T) {
	s := State{Date: "2024-01-01"}

	changed, err := s.SetDate("2025-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "2025-01-01", s.Date)

	_, err = s.SetDate("01/07/2024")
	require.Error(t, err)
	assert.True(t, errors.Is(err, temporal.ErrInvalidDate))
	assert.Equal(t, "2025-01-01", s.Date)
	assert.Equal(t, uint64(1), s.Revision)
}

func TestState_SetDateIndex(t *testing.T) {
	var s State
	for i, want := range SliderDates {
		_, err := s.SetDateIndex(i)
		require.NoError(t, err)
		assert.Equal(t, want, s.Date)
	}

	_, err := s.SetDateIndex(len(SliderDates))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSliderIndex))
	_, err = s.SetDateIndex(-1)
	require.Error(t, err)
}

func TestState_RadiosDoNotBumpRevision(t *testing.T) {
	var s State
	s.SetRegionType("regions")
	s.SetDataType("economy")
	assert.Equal(t, "regions", s.RegionType)
	assert.Equal(t, "economy", s.DataType)
	assert.Zero(t, s.Revision)
}
