package main

import (
	"github.com/vdsotools/vdsodump/internal/dumper/cmd"
	"github.com/vdsotools/vdsodump/pkg/maxprocs"
)

func main() {
	maxprocs.Adjust()
	cmd.Execute()
}
