package knowledge

import (
	"strings"

	"ai_tutor_backend/internal/model"
)

// Entry 学科知识点词典条目
type Entry struct {
	Subject  model.Subject
	Name     string   // 规范名，学科内唯一
	Code     string   // 课标编码，可为空
	Keywords []string // 规则抽取的触发词
	Related  []string // 相关知识点规范名（编辑提示，不构成硬边）
}

// Dictionary 静态学科知识点词典，启动时构建，之后只读
type Dictionary struct {
	bySubject map[model.Subject][]Entry
	index     map[model.Subject]map[string]*Entry // 小写规范名 -> 条目
}

// NewDictionary 从内置词表构建词典
func NewDictionary() *Dictionary {
	d := &Dictionary{
		bySubject: make(map[model.Subject][]Entry),
		index:     make(map[model.Subject]map[string]*Entry),
	}
	for _, e := range builtinEntries {
		d.bySubject[e.Subject] = append(d.bySubject[e.Subject], e)
	}
	for subject, entries := range d.bySubject {
		idx := make(map[string]*Entry, len(entries))
		for i := range entries {
			idx[strings.ToLower(entries[i].Name)] = &entries[i]
		}
		d.index[subject] = idx
	}
	return d
}

// All 返回学科下的全部条目
func (d *Dictionary) All(subject model.Subject) []Entry {
	return d.bySubject[subject]
}

// Lookup 把一个（可能是AI抽取的）知识点名归一到词典条目
// 先做不区分大小写的精确匹配，再做子串匹配，子串命中时取规范名最长者
// 查不到不是错误，调用方自行处理原始名
func (d *Dictionary) Lookup(subject model.Subject, name string) (*Entry, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	idx, ok := d.index[subject]
	if !ok {
		return nil, false
	}

	lower := strings.ToLower(name)
	if e, ok := idx[lower]; ok {
		return e, true
	}

	var best *Entry
	for canonical, e := range idx {
		if strings.Contains(lower, canonical) || strings.Contains(canonical, lower) {
			if best == nil || len(e.Name) > len(best.Name) {
				best = e
			}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
