package rightshttp

// asyncResponse describes async report responses.
type asyncResponse struct {
	ID          string `json:"id"`
	StatusURL   string `json:"status_url"`
	DownloadURL string `json:"download_url"`
}
