//go:build !linux

package pipeline

import "os"

func adviseSequential(*os.File) {}
