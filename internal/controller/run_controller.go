// internal/controller/run_controller.go
package controller

import (
    "context"
    "encoding/json"
    "log"
    "net/http"
    "sync"

    "github.com/unclebandit/leadsweeper-backend/internal/pipeline"
)

// Runner starts one sweep; the controller makes sure only one runs at a time.
type Runner interface {
    Run(ctx context.Context) (*pipeline.Report, error)
}

type RunController struct {
    Pipeline Runner

    mu      sync.Mutex
    running bool
    latest  *pipeline.Report
}

// StartRun kicks off a sweep in the background. A sweep already in
// progress is rejected with 409.
func (c *RunController) StartRun(w http.ResponseWriter, r *http.Request) {
    c.mu.Lock()
    if c.running {
        c.mu.Unlock()
        http.Error(w, "a sweep is already running", http.StatusConflict)
        return
    }
    c.running = true
    c.mu.Unlock()

    go func() {
        report, err := c.Pipeline.Run(context.Background())
        if err != nil {
            log.Println("⚠️ Sweep ended early:", err)
        }

        c.mu.Lock()
        c.latest = report
        c.running = false
        c.mu.Unlock()
    }()

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusAccepted)
    json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

// LatestRun returns the report of the most recently finished sweep.
func (c *RunController) LatestRun(w http.ResponseWriter, r *http.Request) {
    c.mu.Lock()
    report := c.latest
    running := c.running
    c.mu.Unlock()

    if report == nil {
        http.Error(w, "no sweep has completed yet", http.StatusNotFound)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "running": running,
        "report":  report,
    })
}

func (c *RunController) Health(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
