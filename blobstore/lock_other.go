//go:build !unix

package blobstore

import "os"

// Advisory locking is only implemented on unix platforms.
const lockSupported = false

func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
