package models

import (
	"time"

	"gorm.io/gorm"
)

// InterviewToken grants a single interview to one email address.
type InterviewToken struct {
	gorm.Model
	Token         string     `gorm:"uniqueIndex;not null" json:"token"`
	Email         string     `gorm:"index;not null" json:"email"`
	CompanyDomain *string    `gorm:"index" json:"companyDomain"`
	IsValid       bool       `gorm:"not null;default:true;index" json:"isValid"`
	UsedAt        *time.Time `json:"usedAt"`
}

// AllowedDomain lists email domains whose users may sign in as interviewers.
type AllowedDomain struct {
	gorm.Model
	Domain string `gorm:"uniqueIndex;not null" json:"domain"`
}

type AccountRole string

const (
	RoleInterviewer AccountRole = "interviewer"
	RoleAdmin       AccountRole = "admin"
)

// Interviewer is a dashboard account.
type Interviewer struct {
	gorm.Model
	Email        string      `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string      `gorm:"not null" json:"-"`
	Role         AccountRole `gorm:"not null;default:interviewer" json:"role"`
}

// OutboxEntry is a candidate write that failed to reach the document store.
type OutboxEntry struct {
	CandidateID string    `gorm:"primaryKey" json:"candidateId"`
	Payload     []byte    `gorm:"not null" json:"-"`
	Attempts    int       `gorm:"not null;default:0" json:"attempts"`
	LastError   string    `gorm:"type:text" json:"lastError"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
