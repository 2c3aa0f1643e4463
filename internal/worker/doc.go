// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package worker defines the asynchronous protocol between the session
// controller and the execution context that loads the model and generates
// tokens, plus the Ollama-backed implementation of that protocol.
//
// # Protocol
//
// Commands flow controller -> worker and are fire-and-forget: Send never
// blocks and no command has a correlated reply. Events flow worker ->
// controller on a single channel and arrive in send order. The two
// directions are not mutually ordered.
//
// Contract guarantees:
//
//   - exactly one Ready event follows a successful Load
//   - exactly one Complete event follows each Generate, whether or not
//     an Interrupt was sent
//   - Initiate/Progress/Done triples occur only while loading
//   - Update events occur only between Start and Complete
//
// # Implementations
//
//   - Ollama: talks to a local Ollama server over HTTP
//   - Script: an in-process double that replays scripted events (tests)
package worker
