package dashboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/demographics-dashboard/internal/demographics"
	"github.com/sells-group/demographics-dashboard/internal/fetcher"
	"github.com/sells-group/demographics-dashboard/internal/filter"
	"github.com/sells-group/demographics-dashboard/internal/table"
)

// FilterOptions are the choices offered by the filter dropdowns.
type FilterOptions struct {
	Regions        []string         `json:"regions"`
	Municipalities []string         `json:"municipalities"`
	Years          []string         `json:"years"`
	Selection      filter.Selection `json:"selection"`
}

// TableView owns the filter engine and the table renderer.
type TableView struct {
	mu       sync.Mutex
	engine   *filter.Engine
	renderer *table.Renderer
	err      error
}

// NewTableView builds a view over records.
func NewTableView(records []demographics.Record, opts table.Options) *TableView {
	return &TableView{
		engine:   filter.New(records),
		renderer: table.NewRenderer(opts),
	}
}

// FailedTableView is a view whose data could not be loaded.
func FailedTableView(err error) *TableView {
	return &TableView{err: err}
}

// LoadTableView fetches source and builds the view. A failed fetch is kept
// on the view, which then renders the error row.
func LoadTableView(ctx context.Context, f fetcher.Fetcher, source string, load demographics.LoadOptions, opts table.Options) *TableView {
	records, err := demographics.Fetch(ctx, f, source, load)
	if err != nil {
		zap.L().Error("dashboard: table data failed to load", zap.String("source", source), zap.Error(err))
		return FailedTableView(err)
	}
	return NewTableView(records, opts)
}

// Err returns the load error, if any.
func (v *TableView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Records returns every loaded record.
func (v *TableView) Records() ([]demographics.Record, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return v.engine.All(), nil
}

// View renders the current filtered view.
func (v *TableView) View() *table.View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.render()
}

// Apply replaces the selection and renders.
func (v *TableView) Apply(sel filter.Selection) *table.View {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err == nil {
		v.engine.Apply(sel)
	}
	return v.render()
}

// Reset clears every filter and renders.
func (v *TableView) Reset() *table.View {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err == nil {
		v.engine.Reset()
	}
	return v.render()
}

// Filters returns the dropdown choices. A non-empty region narrows the
// municipalities without changing the selection.
func (v *TableView) Filters(region string) FilterOptions {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return FilterOptions{}
	}

	municipalities := v.engine.Municipalities()
	if region != "" {
		municipalities = v.engine.MunicipalitiesIn(region)
	}
	return FilterOptions{
		Regions:        v.engine.Regions(),
		Municipalities: municipalities,
		Years:          v.engine.Years(),
		Selection:      v.engine.Selection(),
	}
}

func (v *TableView) render() *table.View {
	if v.err != nil {
		return table.ErrorView()
	}
	return v.renderer.Render(v.engine.View())
}
