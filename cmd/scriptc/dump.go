package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ivrplatform/goivr/pkg/script"
)

func dumpImage(w io.Writer, img *script.Image) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "image %d %q: %d errors, %d pages\n", img.ID(), img.Filename(), len(img.Errors()), img.Pages())
	for _, s := range img.Sections() {
		fmt.Fprintf(bw, "%s %s", s.Kind, s.Key)
		if s.File != "" {
			fmt.Fprintf(bw, " (%s)", s.File)
		}
		bw.WriteByte('\n')
		dumpBlock(bw, "  ", s.Block)
		for _, b := range s.Events {
			fmt.Fprintf(bw, "  ^%s\n", b.Name)
			dumpBlock(bw, "    ", b.Block)
		}
		for _, b := range s.Methods {
			fmt.Fprintf(bw, "  -%s\n", b.Name)
			dumpBlock(bw, "    ", b.Block)
		}
	}
	return bw.Flush()
}

func dumpBlock(w *bufio.Writer, indent string, b *script.Block) {
	if b == nil {
		return
	}
	for _, l := range b.Lines {
		fmt.Fprintf(w, "%s%03d %s", indent, l.Index, l.Cmd)
		if len(l.Args) > 0 {
			fmt.Fprintf(w, " %s", strings.Join(l.Args, " "))
		}
		if l.Sub != nil {
			fmt.Fprintf(w, " -> %s", l.Sub.Key)
		}
		if l.Jump >= 0 {
			fmt.Fprintf(w, " jump=%d", l.Jump)
		}
		if l.Exit >= 0 {
			fmt.Fprintf(w, " exit=%d", l.Exit)
		}
		w.WriteByte('\n')
	}
}
