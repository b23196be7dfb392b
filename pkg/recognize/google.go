package recognize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/hocr"
	"github.com/gardar/ocrsandwich/pkg/workspace"
)

// clientOptions picks credentials the way the gcloud tools do: inline JSON
// first, then a credentials file, then application default credentials.
func clientOptions(g GoogleOptions, endpoint string) []option.ClientOption {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	credJSON := g.CredentialsJSON
	if credJSON == "" {
		credJSON = os.Getenv("GOOGLE_CREDENTIALS")
	}
	switch {
	case credJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	case g.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(g.CredentialsFile))
	}
	return opts
}

// languageHints turns a tesseract language string such as "eng+deu" into
// BCP-47 base languages. Codes without an ISO 639 equivalent, like
// "chi_sim", are dropped and left to auto-detection.
func languageHints(lang string) []string {
	var hints []string
	for _, code := range strings.Split(lang, "+") {
		base, err := language.ParseBase(strings.TrimSpace(code))
		if err != nil {
			continue
		}
		hints = append(hints, base.String())
	}
	return hints
}

// dumpResponse writes the raw API response for img as JSON into dir.
func dumpResponse(dir, engine string, img artifact.PageImage, msg proto.Message) error {
	if dir == "" {
		return nil
	}
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s.%s.json", workspace.PageBase(img.Index), engine)
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// imageMIME returns the MIME type the Google APIs expect for path.
func imageMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}

// newPage returns an empty hOCR page covering the whole image.
func newPage(img artifact.PageImage, width, height float64) hocr.Page {
	n := img.Number()
	return hocr.Page{
		ID:         fmt.Sprintf("page_%d", n),
		PageNumber: n,
		ImageName:  filepath.Base(img.Path),
		BBox:       hocr.NewBoundingBox(0, 0, width, height),
		Metadata:   map[string]string{},
	}
}
