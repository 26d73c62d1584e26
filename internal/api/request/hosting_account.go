package request

type CreateHostingAccount struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username" validate:"required,min=1,max=64"`
	Domain   string `json:"domain" validate:"required,domain"`
}

type SetAccountStatus struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}
