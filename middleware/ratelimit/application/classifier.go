package application

import (
	"strings"

	"admin-gateway/middleware/ratelimit/domain"
)

// Classifier decide a categoria de uma requisição. A ordem de prioridade é fixa:
//
//  1. role elevada (admin): bypass total, sem contagem
//  2. autenticado: categoria authenticated
//  3. auth > upload > password-reset > search > modification > api > general
//
// Os segmentos são comparados por segmento inteiro do path ("auth" casa
// /api/auth/login mas não /authors).
type Classifier struct {
	ElevatedRoles         []string
	AuthSegments          []string
	UploadSegments        []string
	FilesSegments         []string
	PasswordResetSegments []string
	SearchSegments        []string
	SearchParams          []string
	APIPrefix             string
}

func DefaultClassifier() Classifier {
	return Classifier{
		ElevatedRoles:         []string{"admin", "superadmin", "super_admin"},
		AuthSegments:          []string{"auth"},
		UploadSegments:        []string{"upload", "uploads"},
		FilesSegments:         []string{"files"},
		PasswordResetSegments: []string{"password-reset", "reset-password", "forgot-password"},
		SearchSegments:        []string{"search"},
		SearchParams:          []string{"search", "q"},
		APIPrefix:             "/api",
	}
}

// Classify devolve a categoria e se a requisição ignora todos os limites.
func (c Classifier) Classify(req domain.Request) (domain.Category, bool) {
	if req.Authenticated() && contains(c.ElevatedRoles, strings.ToLower(req.Role)) {
		return "", true
	}
	if req.Authenticated() {
		return domain.CategoryAuthenticated, false
	}

	segs := segments(req.Path)
	method := strings.ToUpper(req.Method)

	switch {
	case hasAny(segs, c.AuthSegments):
		return domain.CategoryAuth, false
	case hasAny(segs, c.UploadSegments) || (method == "POST" && hasAny(segs, c.FilesSegments)):
		return domain.CategoryUpload, false
	case hasAny(segs, c.PasswordResetSegments):
		return domain.CategoryPasswordReset, false
	case hasAny(segs, c.SearchSegments) || c.hasSearchParam(req.Query):
		return domain.CategorySearch, false
	case method == "POST" || method == "PUT" || method == "PATCH" || method == "DELETE":
		return domain.CategoryModification, false
	case c.APIPrefix != "" && (req.Path == c.APIPrefix || strings.HasPrefix(req.Path, strings.TrimSuffix(c.APIPrefix, "/")+"/")):
		return domain.CategoryAPI, false
	}
	return domain.CategoryGeneral, false
}

func (c Classifier) hasSearchParam(q map[string][]string) bool {
	for _, p := range c.SearchParams {
		if vs, ok := q[p]; ok && len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
			return true
		}
	}
	return false
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(strings.ToLower(path), "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func hasAny(segs, want []string) bool {
	for _, s := range segs {
		if contains(want, s) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
