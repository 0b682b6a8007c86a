package grade

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/gradebook/core"
)

func newValidate() (*validator.Validate, func(error) map[string]string) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	translate := func(err error) map[string]string {
		vErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		fldErrs := make(map[string]string, len(vErrs))
		for _, vErr := range vErrs {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return fldErrs
	}
	return validate, translate
}

func TestNewGradeValidation(t *testing.T) {
	validate, translate := newValidate()

	valid := func(modify func(ng *NewGrade)) NewGrade {
		g := 85.0
		ng := NewGrade{
			StudentID:    " s1 ",
			StudentName:  "Jane Doe",
			ClassID:      "c1",
			Subject:      "Math",
			Period:       FirstPeriod,
			AcademicYear: "2020/2021",
			TeacherID:    "t1",
			Grade:        &g,
		}
		if modify != nil {
			modify(&ng)
		}
		return ng
	}
	float := func(f float64) *float64 { return &f }

	tests := []struct {
		name    string
		ng      NewGrade
		wantErr map[string]string
	}{
		{name: "valid", ng: valid(nil)},
		{name: "incomplete", ng: valid(func(ng *NewGrade) { ng.Grade = nil })},
		{name: "bounds", ng: valid(func(ng *NewGrade) { ng.Grade = float(60) })},
		{
			name:    "too low",
			ng:      valid(func(ng *NewGrade) { ng.Grade = float(59.9) }),
			wantErr: map[string]string{"grade": gradeRangeText},
		},
		{
			name:    "too high",
			ng:      valid(func(ng *NewGrade) { ng.Grade = float(100.5) }),
			wantErr: map[string]string{"grade": gradeRangeText},
		},
		{
			name:    "invalid period",
			ng:      valid(func(ng *NewGrade) { ng.Period = "seventhPeriod" }),
			wantErr: map[string]string{"period": periodText},
		},
		{
			name:    "invalid academic year",
			ng:      valid(func(ng *NewGrade) { ng.AcademicYear = "2020/2022" }),
			wantErr: map[string]string{"academicYear": academicYearText},
		},
		{
			name: "required",
			ng:   NewGrade{StudentID: "   "},
			wantErr: map[string]string{
				"studentId":    "this field is required",
				"studentName":  "this field is required",
				"classId":      "this field is required",
				"subject":      "this field is required",
				"period":       "this field is required",
				"academicYear": "this field is required",
				"teacherId":    "this field is required",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ng := tc.ng
			err := ng.Validate(validate)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				assert.Equal(t, "s1", ng.StudentID)
				return
			}
			assert.Equal(t, tc.wantErr, translate(err))
		})
	}
}

func TestReviewGradeValidation(t *testing.T) {
	validate, translate := newValidate()

	tests := []struct {
		status  Status
		wantErr map[string]string
	}{
		{status: StatusApproved},
		{status: StatusRejected},
		{status: StatusPending, wantErr: map[string]string{"status": neStatusText}},
		{status: "Archived", wantErr: map[string]string{"status": gradeStatusText}},
		{status: "", wantErr: map[string]string{"status": "this field is required"}},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			err := ReviewGrade{Status: tc.status}.Validate(validate)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tc.wantErr, translate(err))
		})
	}
}

func TestIsValidAcademicYear(t *testing.T) {
	tests := map[string]bool{
		"2020/2021": true,
		"1999/2000": true,
		"2020/2020": false,
		"2021/2020": false,
		"2020-2021": false,
		"20/21":     false,
		"":          false,
	}
	for year, want := range tests {
		assert.Equal(t, want, IsValidAcademicYear(year), year)
	}
}
