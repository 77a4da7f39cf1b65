package gate

import (
	"encoding/json"
	"net/http"
)

// decisionResponse is the verdict plus the debounced overlay flag.
type decisionResponse struct {
	Decision
	VisibleBlocking bool `json:"visible_blocking"`
}

// HandleDecision serves the watcher's latest verdict so clients can render
// the gate without re-deriving it. VisibleBlocking honors the debounce
// window; the decision itself is always current.
func HandleDecision(watcher *Watcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(decisionResponse{
			Decision:        watcher.Decision(),
			VisibleBlocking: watcher.VisibleBlocking(),
		})
	}
}
