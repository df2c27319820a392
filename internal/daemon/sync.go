package daemon

import (
	"strconv"
	"time"

	"github.com/1broseidon/quickstep/internal/statslog"
)

// ReapStale force-finishes a recents animation that has been running longer
// than maxAge without anyone asking it to finish. The gesture in flight, if
// any, is switched out first so it converges. It reports whether a session
// was reaped.
func (d *Driver) ReapStale(maxAge time.Duration) bool {
	m := d.cfg.Manager
	st := m.Status()
	if st.SessionID == "" || st.FinishRequested || st.Age < maxAge {
		return false
	}

	d.logger.Warn("stale recents animation, finishing to app",
		"session", st.SessionID,
		"age", st.Age,
		"gesture", st.GestureID)
	d.cfg.Metrics.RecordStale(strconv.Itoa(d.cfg.DisplayID))
	if d.cfg.Stats != nil {
		d.cfg.Stats.Record(statslog.Entry{
			Event:     statslog.EventStale,
			GestureID: st.GestureID,
			DisplayID: d.cfg.DisplayID,
			SessionID: st.SessionID,
			EndTarget: st.EndTarget,
			Reason:    "watchdog",
			Duration:  st.Age,
		})
	}

	if h := d.current; h != nil {
		d.current = nil
		if !h.IsInvalidated() {
			h.OnConsumerAboutToBeSwitched()
		}
	}
	m.FinishRunningRecentsAnimation(false)
	return true
}

// SyncOverview reloads the overview pages from the compositor while no
// gesture is using them, so closed windows drop out of the panel.
func (d *Driver) SyncOverview() {
	if d.current != nil {
		return
	}
	panel := d.cfg.Host.Panel()
	if panel.Status().Attached {
		return
	}
	before := len(panel.Status().Pages)
	if err := panel.Refresh(); err != nil {
		d.logger.Warn("overview sync failed", "error", err)
		return
	}
	if after := len(panel.Status().Pages); after != before {
		d.logger.Debug("overview synced", "pages_before", before, "pages_after", after)
	}
}
