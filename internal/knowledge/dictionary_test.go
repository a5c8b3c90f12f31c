package knowledge

import (
	"testing"

	"ai_tutor_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestDictionary_Lookup(t *testing.T) {
	d := NewDictionary()

	tests := []struct {
		name     string
		subject  model.Subject
		query    string
		wantName string
		wantOK   bool
	}{
		{
			name:     "精确匹配",
			subject:  model.SubjectMath,
			query:    "二次函数",
			wantName: "二次函数",
			wantOK:   true,
		},
		{
			name:     "AI抽取名包含规范名",
			subject:  model.SubjectMath,
			query:    "二次函数的顶点坐标",
			wantName: "二次函数",
			wantOK:   true,
		},
		{
			name:     "子串命中取最长规范名",
			subject:  model.SubjectMath,
			query:    "全等三角形的判定",
			wantName: "全等三角形",
			wantOK:   true,
		},
		{
			name:    "查不到不报错",
			subject: model.SubjectMath,
			query:   "量子力学",
			wantOK:  false,
		},
		{
			name:    "空白输入",
			subject: model.SubjectMath,
			query:   "   ",
			wantOK:  false,
		},
		{
			name:     "英文不区分大小写",
			subject:  model.SubjectEnglish,
			query:    "一般现在时",
			wantName: "一般现在时",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := d.Lookup(tt.subject, tt.query)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantName, entry.Name)
			}
		})
	}
}

func TestDictionary_All(t *testing.T) {
	d := NewDictionary()

	math := d.All(model.SubjectMath)
	assert.NotEmpty(t, math)
	for _, e := range math {
		assert.Equal(t, model.SubjectMath, e.Subject)
		assert.NotEmpty(t, e.Name)
	}

	assert.Empty(t, d.All(model.Subject("biology")))
}
