// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package library embeds the default MJML fragment library. Deployments can
// point TEMPLATE_SOURCE at a directory or an S3 bucket with the same layout
// to replace it without rebuilding.
package library

import (
	"embed"
	"io/fs"
)

// files embeds every email type directory.
//
//go:embed Promotion Productgrid Newsletter Welcome
var files embed.FS

// FS returns the embedded library rooted at the email type directories.
func FS() fs.FS {
	return files
}
