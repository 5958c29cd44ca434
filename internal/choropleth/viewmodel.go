package choropleth

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/demographics-dashboard/internal/boundary"
	"github.com/sells-group/demographics-dashboard/internal/temporal"
)

// ErrNoData is returned when no entity has a usable value for the variable.
var ErrNoData = eris.New("choropleth: no data")

// LegendSteps is the number of gradient intervals; the legend has one more stop.
const LegendSteps = 10

// FeatureView is one drawable feature.
type FeatureView struct {
	Name    string   `json:"name"`
	Region  string   `json:"region,omitempty"`
	Value   float64  `json:"value"`
	Matched bool     `json:"matched"`
	Fill    string   `json:"fill"`
	Tooltip []string `json:"tooltip"`

	Feature *boundary.Feature `json:"-"`
}

// LegendStop is one gradient stop. Offset is a percentage.
type LegendStop struct {
	Offset float64 `json:"offset"`
	Value  float64 `json:"value"`
	Color  string  `json:"color"`
}

// Legend is the color key drawn under the map.
type Legend struct {
	Title    string       `json:"title"`
	Stops    []LegendStop `json:"stops"`
	MinLabel string       `json:"min_label"`
	MaxLabel string       `json:"max_label"`
}

// ViewModel is everything a Drawer needs for one map render.
type ViewModel struct {
	Variable Variable      `json:"variable"`
	Date     string        `json:"date,omitempty"`
	Domain   [2]float64    `json:"domain"`
	Features []FeatureView `json:"features"`
	Legend   *Legend       `json:"legend,omitempty"`
}

// Build joins features to the index's current values and colors them. It is
// pure: the same inputs always give the same fills. Features join by name
// through the index's normalizer. A matched positive value gets
// scale(value); anything else gets FallbackFill.
func Build(features *boundary.Collection, ix *temporal.Index, v Variable) (*ViewModel, error) {
	interp, err := SchemeInterpolator(v.Scheme)
	if err != nil {
		return nil, err
	}

	minV, maxV := math.Inf(1), math.Inf(-1)
	var count int
	for _, ent := range ix.Entities() {
		val, ok := ent.CurrentValue(v.Key)
		if !ok || !val.Defined() {
			continue
		}
		minV = math.Min(minV, val.Number)
		maxV = math.Max(maxV, val.Number)
		count++
	}
	if count == 0 {
		return nil, eris.Wrapf(ErrNoData, "%s on %s", v.Label, ix.Date())
	}
	scale := NewScale(minV, maxV, interp)

	vm := &ViewModel{
		Variable: v,
		Date:     ix.Date(),
		Domain:   [2]float64{minV, maxV},
		Features: make([]FeatureView, 0, features.Len()),
		Legend:   legend(scale, maxV, v),
	}
	if features == nil {
		return vm, nil
	}

	for _, f := range features.Features {
		fv := FeatureView{Name: f.Name, Fill: FallbackFill, Feature: f}
		if ent, ok := ix.Lookup(f.Name); ok {
			fv.Matched = true
			fv.Region = ent.Current.Region()
			if val, ok := ent.CurrentValue(v.Key); ok && val.Defined() {
				fv.Value = val.Number
			}
		}
		if fv.Value > 0 {
			fv.Fill = scale.Color(fv.Value)
		}
		fv.Tooltip = tooltip(fv, v)
		vm.Features = append(vm.Features, fv)
	}
	return vm, nil
}

// BuildCategorical colors features from the categorical palette by index.
// Used for the region map when no region dataset is configured.
func BuildCategorical(features *boundary.Collection) *ViewModel {
	vm := &ViewModel{Features: make([]FeatureView, 0, features.Len())}
	if features == nil {
		return vm
	}
	for i, f := range features.Features {
		name := f.Name
		if name == "" {
			name = "Unnamed Region"
		}
		vm.Features = append(vm.Features, FeatureView{
			Name:    f.Name,
			Fill:    Categorical[i%len(Categorical)],
			Tooltip: []string{name},
			Feature: f,
		})
	}
	return vm
}

// Outline is a view model that draws every feature in the fallback fill,
// for maps that have never had data.
func Outline(features *boundary.Collection, v Variable) *ViewModel {
	vm := &ViewModel{Variable: v, Features: make([]FeatureView, 0, features.Len())}
	if features == nil {
		return vm
	}
	for _, f := range features.Features {
		fv := FeatureView{Name: f.Name, Fill: FallbackFill, Feature: f}
		fv.Tooltip = tooltip(fv, v)
		vm.Features = append(vm.Features, fv)
	}
	return vm
}

// legend samples the scale from 0 to maxV. The minimum label is always 0.
func legend(scale Scale, maxV float64, v Variable) *Legend {
	l := &Legend{
		Title:    v.Label,
		Stops:    make([]LegendStop, 0, LegendSteps+1),
		MinLabel: v.Format.Apply(0),
		MaxLabel: v.Format.Apply(maxV),
	}
	for i := 0; i <= LegendSteps; i++ {
		val := float64(i) / LegendSteps * maxV
		l.Stops = append(l.Stops, LegendStop{
			Offset: float64(i) / LegendSteps * 100,
			Value:  val,
			Color:  scale.Color(val),
		})
	}
	return l
}

func tooltip(fv FeatureView, v Variable) []string {
	name := fv.Name
	if name == "" {
		name = "Unknown"
	}
	region := fv.Region
	if region == "" {
		region = "N/A"
	}
	return []string{
		name,
		"Region: " + region,
		v.Label + ": " + v.Format.Apply(fv.Value),
	}
}
