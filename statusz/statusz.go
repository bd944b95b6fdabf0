// Package statusz serves liveness and render progress on the debug listener.
package statusz

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

type Handler struct {
	rowsDone  int64
	rowsTotal int64
}

func New() *Handler {
	return &Handler{}
}

// SetProgress has the signature of camera.ProgressFunction.
func (h *Handler) SetProgress(rowsDone, rowsTotal int) {
	atomic.StoreInt64(&h.rowsDone, int64(rowsDone))
	atomic.StoreInt64(&h.rowsTotal, int64(rowsTotal))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	done := atomic.LoadInt64(&h.rowsDone)
	total := atomic.LoadInt64(&h.rowsTotal)
	fmt.Fprintf(w, "200 OK\nrows %d/%d\n", done, total)
}
