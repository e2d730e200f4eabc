package handlers

import (
	"net/http"

	"github.com/gigapi/compactor/compactor"
	"github.com/gigapi/compactor/model"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatsSource is the read side of a compactor.
type StatsSource interface {
	State() compactor.State
	Progress() uint64
	LastStats() (model.RunStats, bool)
}

type Handler struct {
	Compactor StatsSource
}

type statsResponse struct {
	State    string          `json:"state"`
	Progress uint64          `json:"progress"`
	Last     *model.RunStats `json:"last,omitempty"`
}

func (u *Handler) Health(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := w.Write([]byte("ok"))
	return err
}

// Stats reports the live state and progress plus the statistics of the last
// finished run.
func (u *Handler) Stats(w http.ResponseWriter, r *http.Request) error {
	res := statsResponse{
		State:    u.Compactor.State().String(),
		Progress: u.Compactor.Progress(),
	}
	if last, ok := u.Compactor.LastStats(); ok {
		res.Last = &last
	}
	body, err := json.Marshal(res)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, err = w.Write(body)
	return err
}
