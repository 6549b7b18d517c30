// Package domain defines the ROI records, alerts and sync results exchanged
// between the backend client, the period poller and the dashboard store.
package domain
