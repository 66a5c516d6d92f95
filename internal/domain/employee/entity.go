package employee

import (
	"encoding/json"
)

// Employee is the persisted unit. JSON keys are the keys of the stored collection blob.
type Employee struct {
	EmployeeID  int64    `json:"employeeId"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Mobile      string   `json:"mobile"`
	Designation string   `json:"designation"`
	Gender      string   `json:"gender"`
	Courses     []string `json:"courses"`
	Image       Image    `json:"image"`
	CreateDate  string   `json:"createDate"`
}

// Clone returns a copy that shares no mutable state with e.
func (e Employee) Clone() Employee {
	c := e
	c.Courses = append([]string(nil), e.Courses...)
	if e.Image.Upload != nil {
		u := *e.Image.Upload
		u.Data = append([]byte(nil), e.Image.Upload.Data...)
		c.Image.Upload = &u
	}
	return c
}

// HasCourse reports whether course is selected.
func (e Employee) HasCourse(course string) bool {
	for _, c := range e.Courses {
		if c == course {
			return true
		}
	}
	return false
}

// Field names, as used in error mappings and form updates.
const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldMobile      = "mobile"
	FieldDesignation = "designation"
	FieldGender      = "gender"
	FieldCourses     = "courses"
	FieldImage       = "image"
	FieldCreateDate  = "createDate"
)

// Fields lists every editable field in form order.
var Fields = []string{
	FieldName,
	FieldEmail,
	FieldMobile,
	FieldDesignation,
	FieldGender,
	FieldCourses,
	FieldImage,
	FieldCreateDate,
}

// Designation is the employee's role.
type Designation string

const (
	DesignationHR      Designation = "HR"
	DesignationManager Designation = "Manager"
	DesignationSales   Designation = "Sales"
)

var Designations = []string{string(DesignationHR), string(DesignationManager), string(DesignationSales)}

// Gender is stored as a single letter.
type Gender string

const (
	Male   Gender = "M"
	Female Gender = "F"
)

var Genders = []string{string(Male), string(Female)}

// Course is a qualification; a record selects one or more.
type Course string

const (
	CourseMCA Course = "MCA"
	CourseBCA Course = "BCA"
	CourseBSC Course = "BSC"
)

var Courses = []string{string(CourseMCA), string(CourseBCA), string(CourseBSC)}

// AllowedImageTypes are the MIME types accepted for uploads.
var AllowedImageTypes = []string{"image/jpeg", "image/png"}

// Upload is a raw image file handed in by a form before submission.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Image is either empty, a raw Upload (pre-submit), or an encoded string (at rest).
type Image struct {
	Upload  *Upload
	Encoded string
}

// EncodedImage returns an Image holding an already-encoded value.
func EncodedImage(s string) Image {
	return Image{Encoded: s}
}

// RawImage returns an Image holding a raw upload.
func RawImage(u *Upload) Image {
	return Image{Upload: u}
}

// IsZero reports whether no image is set.
func (i Image) IsZero() bool {
	return i.Upload == nil && i.Encoded == ""
}

// IsRaw reports whether the image is an unencoded upload.
func (i Image) IsRaw() bool {
	return i.Upload != nil
}

// MarshalJSON encodes the at-rest form: the encoded string or null.
// A raw upload never reaches the store.
func (i Image) MarshalJSON() ([]byte, error) {
	if i.IsRaw() {
		return nil, ErrRawImage
	}
	if i.Encoded == "" {
		return []byte("null"), nil
	}
	return json.Marshal(i.Encoded)
}

// UnmarshalJSON reads the at-rest form; null is an empty image.
func (i *Image) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Image{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*i = Image{Encoded: s}
	return nil
}
