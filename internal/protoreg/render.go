package protoreg

import (
	"io"
	"os"
	"path"

	"github.com/jhump/protoreflect/v2/protoprint"
)

// Render writes the .proto source of the service to w.
func (r *Registry) Render(w io.Writer) error {
	pp := protoprint.Printer{}
	return pp.PrintProtoFile(r.file, w)
}

// RenderDir writes the .proto file under outDir at its import path.
func (r *Registry) RenderDir(outDir string) error {
	fp := path.Join(outDir, r.file.Path())
	if err := os.MkdirAll(path.Dir(fp), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(fp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.Render(f)
}
