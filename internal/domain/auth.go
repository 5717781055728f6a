package domain

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User                  *UserResponse `json:"user"`
	AccessToken           string        `json:"access_token"`
	AccessTokenExpiresIn  int64         `json:"access_token_expires_in"`
	RefreshToken          string        `json:"refresh_token"`
	RefreshTokenExpiresIn int64         `json:"refresh_token_expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type ChangePasswordRequest struct {
	Username    string `json:"username" validate:"required"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}
