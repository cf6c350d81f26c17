// Package provisioner documents the gcp-bulk-provisioner repository.
//
// gcp-bulk automates bulk provisioning of GCP resources: it creates many
// projects, enables services on them, and issues API keys, faster than
// sequential gcloud calls would allow while respecting a concurrency ceiling
// and surviving transient failures.
//
// # Overview
//
// The repository provides:
//   - gcp-bulk CLI for provisioning runs, cleanup, and preflight checks
//   - A bounded-concurrency staged executor with per-item retry
//   - Append-only key files collecting the issued credentials
//
// # Installation
//
//	go install github.com/blackwell-systems/gcp-bulk-provisioner/cmd/gcp-bulk@latest
//
// # Quick Start
//
//	gcp-bulk preflight
//	gcp-bulk run --plan plan.yaml
//	gcp-bulk cleanup --prefix myrun
//
// # Architecture
//
// A run is a pipeline of three stages (create projects, enable services,
// issue keys). Each stage executes one task over its item set with at most N
// concurrent workers; only items that succeed move on to the next stage. A
// fixed settling delay between stages absorbs remote-side propagation lag.
//
// # License
//
// Apache 2.0 - See LICENSE file for details.
package provisioner
