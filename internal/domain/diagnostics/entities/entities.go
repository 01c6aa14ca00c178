package entities

// Probe names
const (
	ProbeProtocolHost = "protocol_host"
	ProbeDatastore    = "datastore"
	ProbeDeployment   = "deployment"
	ProbeCORS         = "cors"
)

// Report is a point-in-time connectivity snapshot, recomputed on every request
type Report struct {
	SupabaseReachable     bool           `json:"supabaseReachable"`
	ProtocolHostReachable bool           `json:"protocolHostReachable"`
	RemoteFunction        RemoteFunction `json:"remoteFunction"`
	CORS                  *CORSResult    `json:"cors,omitempty"`
	Probes                []Probe        `json:"probes"`
}

// RemoteFunction is the deployment status of the connector endpoint
type RemoteFunction struct {
	Deployed bool   `json:"deployed"`
	URL      string `json:"url"`
	Error    string `json:"error,omitempty"`
}

// CORSResult is the outcome of the preflight probe
type CORSResult struct {
	Success bool              `json:"success"`
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	// PostTest mirrors the deployment probe, which issues the actual POST.
	PostTest bool `json:"postTest"`
}

// Probe is one probe record
type Probe struct {
	Name        string `json:"name"`
	Success     bool   `json:"success"`
	LatencyMs   int64  `json:"latencyMs"`
	Error       string `json:"error,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// Healthy reports whether every probe succeeded
func (r *Report) Healthy() bool {
	for _, p := range r.Probes {
		if !p.Success {
			return false
		}
	}
	return true
}
