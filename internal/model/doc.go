// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the core domain types for docvault: owners,
// documents, officer credentials, and the audit/alert records produced
// by a secure presentation session.
package model
