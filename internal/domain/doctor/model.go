package doctor

import (
	"github.com/practice/dashboard/internal/platform/apiclient"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusPending   Status = "PENDING"
)

// Address associates a doctor with a branch.
type Address struct {
	ID       apiclient.ID `json:"id,omitempty"`
	BranchID apiclient.ID `json:"branchId,omitempty"`
	Address  string       `json:"address"`
	Status   string       `json:"status,omitempty"`
}

type Doctor struct {
	ID              apiclient.ID `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Phone           string       `json:"phone,omitempty"`
	Gender          string       `json:"gender,omitempty"`
	Speciality      string       `json:"speciality,omitempty"`
	ExperienceYears int          `json:"experienceYears"`
	Status          Status       `json:"status"`
	IsVerified      bool         `json:"isVerified"`
	RatingAverage   float64      `json:"ratingAverage"`
	ReviewCount     int          `json:"reviewCount"`
	DoctorAddresses []Address    `json:"doctorAddresses,omitempty"`
}

// Active reports whether the doctor can be booked and assigned.
func (d Doctor) Active() bool { return d.Status == StatusActive }

// Input is the doctor form.
type Input struct {
	Name            string   `json:"name" validate:"required,min=2,max=100"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"omitempty,phone"`
	Gender          string   `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Speciality      string   `json:"speciality" validate:"required,max=100"`
	ExperienceYears int      `json:"experienceYears" validate:"gte=0,lte=70"`
	Status          Status   `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED PENDING"`
	BranchIDs       []string `json:"branchIds,omitempty" validate:"omitempty,dive,required"`
}

func defaults() Input {
	return Input{Status: StatusPending}
}

func prefill(d Doctor) Input {
	in := Input{
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		Gender:          d.Gender,
		Speciality:      d.Speciality,
		ExperienceYears: d.ExperienceYears,
		Status:          d.Status,
	}
	for _, a := range d.DoctorAddresses {
		if a.BranchID != "" {
			in.BranchIDs = append(in.BranchIDs, a.BranchID.String())
		}
	}
	return in
}

// AddressInput assigns a doctor to a branch.
type AddressInput struct {
	BranchID string `json:"branchId" validate:"required"`
	Address  string `json:"address" validate:"required,max=255"`
}

// Option is a doctor as offered by pickers in other forms.
type Option struct {
	ID         apiclient.ID `json:"id"`
	Name       string       `json:"name"`
	Speciality string       `json:"speciality,omitempty"`
}
