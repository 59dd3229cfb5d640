// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "fmt"

func main() {
	fmt.Println("vitalsync - sync engine for health-tracking clients")
	fmt.Println("====================================================")
	fmt.Println()
	fmt.Println("vitalsync reconciles a client-resident snapshot of food, workout,")
	fmt.Println("biomarker, goal and profile collections with a shared PostgreSQL")
	fmt.Println("store across unreliable, intermittent connectivity.")
	fmt.Println()
	fmt.Println("Run the HTTP server:")
	fmt.Println("  go run ./cmd/server --addr :8080 --database-url $DATABASE_URL")
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Println("  POST /sync    - run one sync session (push + pull)")
	fmt.Println("  POST /signin  - obtain a JWT for a user/device pair")
	fmt.Println("  GET  /health  - liveness check")
}
