package request

type PutSetting struct {
	Value string `json:"value" validate:"required"`
}
