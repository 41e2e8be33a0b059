// Package api hosts the HTTP server that feeds the gallery front end.
// Notable routes:
//   - GET /api/gallery (alias /api/jerseys) reshapes the dataset file.
//   - GET /proxy/image?url= and /proxy/image/{url} stream upstream photos.
//   - GET /healthz for liveness checks and /metrics for Prometheus scraping.
package api
