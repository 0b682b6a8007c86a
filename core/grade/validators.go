package grade

import (
	"regexp"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

var (
	periodTag  = "period"
	periodText = "invalid period"

	gradeStatusTag  = "gradestatus"
	gradeStatusText = "invalid status"

	academicYearTag   = "academicyear"
	academicYearText  = "academic year must be of form YYYY/YYYY (e.g. 2020/2021)"
	academicYearRegex = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

	gradeRangeText = "grade must be between 60 and 100"
	neStatusText   = "a grade can only be approved or rejected"
)

// InitValidators registers the grade validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(periodTag, periodValidation)
	core.RegisterCustomTranslation(validate, translator, periodTag, periodText)

	_ = validate.RegisterValidation(gradeStatusTag, gradeStatusValidation)
	core.RegisterCustomTranslation(validate, translator, gradeStatusTag, gradeStatusText)

	_ = validate.RegisterValidation(academicYearTag, academicYearValidation)
	core.RegisterCustomTranslation(validate, translator, academicYearTag, academicYearText)

	core.RegisterCustomTranslation(validate, translator, "gte", gradeRangeText, true)
	core.RegisterCustomTranslation(validate, translator, "lte", gradeRangeText, true)
	core.RegisterCustomTranslation(validate, translator, "ne", neStatusText, true)
}

// Custom Validators

func periodValidation(fl validator.FieldLevel) bool {
	return Period(fl.Field().String()).IsValid()
}

func gradeStatusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).IsValid()
}

// academicYearValidation accepts `YYYY/YYYY+1`.
func academicYearValidation(fl validator.FieldLevel) bool {
	return IsValidAcademicYear(fl.Field().String())
}

func IsValidAcademicYear(year string) bool {
	m := academicYearRegex.FindStringSubmatch(year)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}
