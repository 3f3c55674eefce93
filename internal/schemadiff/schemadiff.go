// Пакет schemadiff — структурное сравнение двух JSON Schema.
// Результат перечисляет добавленные, удалённые и изменённые узлы
// (пути в формате JSON Pointer) и текстовый патч форматированных документов.
package schemadiff

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Entry — одно различие. Path — JSON Pointer, корень документа — пустая строка.
// Для added значим только To, для removed — только From.
// Оба поля сериализуются всегда, чтобы значение null не терялось.
type Entry struct {
	Path string `json:"path"`
	From any    `json:"from"`
	To   any    `json:"to"`
}

// Result — результат сравнения схем.
type Result struct {
	AdditionsFound bool    `json:"additionsFound"`
	RemovalsFound  bool    `json:"removalsFound"`
	ChangesFound   bool    `json:"changesFound"`
	Added          []Entry `json:"added"`
	Removed        []Entry `json:"removed"`
	Changed        []Entry `json:"changed"`
	// Patch — патч форматированного source → destination (формат diff-match-patch).
	Patch string `json:"patch"`
}

// Differ — структурный компаратор схем.
type Differ struct{}

// New создаёт компаратор.
func New() *Differ {
	return &Differ{}
}

// Diff сравнивает source и destination.
// Ошибка возвращается, если одно из тел не является JSON.
func (d *Differ) Diff(ctx context.Context, source, destination []byte) (*Result, error) {
	var src, dst any
	if err := json.Unmarshal(source, &src); err != nil {
		return nil, fmt.Errorf("source schema: %w", err)
	}
	if err := json.Unmarshal(destination, &dst); err != nil {
		return nil, fmt.Errorf("destination schema: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Added:   []Entry{},
		Removed: []Entry{},
		Changed: []Entry{},
	}
	walk(res, "", src, dst)
	res.AdditionsFound = len(res.Added) > 0
	res.RemovalsFound = len(res.Removed) > 0
	res.ChangesFound = len(res.Changed) > 0

	patch, err := textPatch(src, dst)
	if err != nil {
		return nil, err
	}
	res.Patch = patch
	return res, nil
}

func walk(res *Result, path string, from, to any) {
	switch f := from.(type) {
	case map[string]any:
		t, ok := to.(map[string]any)
		if !ok {
			break
		}
		for _, k := range unionKeys(f, t) {
			p := path + "/" + escape(k)
			fv, inFrom := f[k]
			tv, inTo := t[k]
			switch {
			case !inFrom:
				res.Added = append(res.Added, Entry{Path: p, To: tv})
			case !inTo:
				res.Removed = append(res.Removed, Entry{Path: p, From: fv})
			default:
				walk(res, p, fv, tv)
			}
		}
		return
	case []any:
		t, ok := to.([]any)
		if !ok {
			break
		}
		n := max(len(f), len(t))
		for i := 0; i < n; i++ {
			p := path + "/" + strconv.Itoa(i)
			switch {
			case i >= len(f):
				res.Added = append(res.Added, Entry{Path: p, To: t[i]})
			case i >= len(t):
				res.Removed = append(res.Removed, Entry{Path: p, From: f[i]})
			default:
				walk(res, p, f[i], t[i])
			}
		}
		return
	}

	if !reflect.DeepEqual(from, to) {
		res.Changed = append(res.Changed, Entry{Path: path, From: from, To: to})
	}
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// escape кодирует сегмент JSON Pointer (RFC 6901).
func escape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

// textPatch строит построчный патч форматированных документов.
func textPatch(src, dst any) (string, error) {
	a, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(dst, "", "  ")
	if err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	ac, bc, lines := dmp.DiffLinesToChars(string(a), string(b))
	diffs := dmp.DiffMain(ac, bc, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	diffs = dmp.DiffCleanupSemantic(diffs)

	return dmp.PatchToText(dmp.PatchMake(string(a), diffs)), nil
}
