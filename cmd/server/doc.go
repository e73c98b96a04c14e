// Command server runs the credential-proxy operator dashboard.
//
// The dashboard lists stored account credentials with quota and tier
// information, controls the proxy service process, tails its log file, and
// drives interactive OAuth login flows for the proxy binary through
// pseudo-terminal sessions.
//
// Configuration comes from DASHBOARD_* environment variables (see
// internal/infrastructure/config); proxy-side defaults are read from the
// proxy's own config.yaml when it can be found.
package main
