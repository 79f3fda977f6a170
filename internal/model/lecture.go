package model

// Lecture 课程目录条目，对应 lectures
// 同一 Number 可对应多个 ClassNum（不同分班），ID = Number + "-" + ClassNum
type Lecture struct {
	ID        string  `gorm:"type:varchar(64);primaryKey"           json:"id"`
	Number    string  `gorm:"type:varchar(32);not null;index"       json:"number"`
	ClassNum  string  `gorm:"type:varchar(16);not null"             json:"class_num"`
	Name      string  `gorm:"type:varchar(255);not null;index"      json:"name"`
	Credit    float64 `gorm:"type:numeric(4,1);not null;default:0"  json:"credit"`
	TimeRoom  string  `gorm:"type:text;not null"                    json:"time_room"` // 原始时间字符串，如 "월 09:00(50) 301-B"
	Professor string  `gorm:"type:varchar(255);not null;default:''" json:"professor"`
	Category  string  `gorm:"type:varchar(64);not null;default:''"  json:"category"`

	Timestamps `json:"-"`
}

// TableName 指定表名
func (Lecture) TableName() string { return "lectures" }

// LectureID 由课程号与分班号生成目录 ID
func LectureID(number, classNum string) string {
	return number + "-" + classNum
}
