// Package api hosts the HTTP index server for a local archive. Notable routes:
//   - GET / renders every snapshot, newest first.
//   - GET /static/index.css serves the embedded stylesheet.
//   - GET /screenshots/* serves captured screenshots.
//   - GET /healthz for liveness and GET /metrics for Prometheus scraping.
//
// Any other path is served from the mirror root.
package api
