package bump

import "time"

// httpListData is used as template data when rendering the status page.
type httpListData struct {
	Targets    []*Target
	LastReport *RunReport
	LastErr    error
	NextRun    time.Time

	// CreatedAt is the time when this datastructure was created.
	CreatedAt time.Time
}

func (h *HTTPService) httpListData() *httpListData {
	report, err := h.evloop.LastReport()

	return &httpListData{
		Targets:    h.targets,
		LastReport: report,
		LastErr:    err,
		NextRun:    h.evloop.NextRun(),
		CreatedAt:  time.Now(),
	}
}
