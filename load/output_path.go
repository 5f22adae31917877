package load

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"edi835/config"
	"edi835/state"
)

const dbExt = ".sqlite"

// buildOutputPath returns database path for the source. Unless NoDirs is set
// source directory structure is kept under dst. Name comes from template
// when one is configured and expands to something usable, otherwise it is
// source base name. Every path segment is cleaned and, if requested,
// transliterated.
func buildOutputPath(values Values, src, dst string, env *state.LocalEnv) string {
	outDir := dst
	if !env.NoDirs {
		outDir = filepath.Join(dst, filepath.Dir(src))
	}

	if tmpl := env.Cfg.Store.OutputNameTemplate; tmpl != "" {
		expanded, err := expandTemplate(config.OutputNameTemplateFieldName, tmpl, values)
		if err != nil {
			env.Logger("load").Warn("Unable to prepare output file name", zap.Error(err))
		} else if segments := splitPath(filepath.FromSlash(expanded)); len(segments) > 0 {
			parts := make([]string, 0, len(segments)+1)
			parts = append(parts, outDir)
			for _, s := range segments {
				parts = append(parts, cleanPathSegment(s, env))
			}
			parts[len(parts)-1] += dbExt
			return filepath.Join(parts...)
		}
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(outDir, cleanPathSegment(base, env)+dbExt)
}

// splitPath breaks path into non empty segments, "." and ".." are dropped so
// expanded template cannot escape destination.
func splitPath(path string) []string {
	segments := strings.Split(path, string(filepath.Separator))
	return slices.DeleteFunc(segments, func(s string) bool {
		s = strings.TrimSpace(s)
		return s == "" || s == "." || s == ".."
	})
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Store.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
