package http

import (
	"github.com/olympiavn/datahub/common/consts/errorcode"
)

type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func OK(data any) Response {
	return Response{
		Code: errorcode.OK,
		Data: data,
	}
}

// OKWarn is OK plus a non-fatal warning, for operations that succeeded with
// degraded guarantees.
func OKWarn(data any, warning string) Response {
	return Response{
		Code:    errorcode.OK,
		Data:    data,
		Warning: warning,
	}
}

func Failed(code string, msg string) Response {
	return Response{
		Code:    code,
		Message: msg,
	}
}
