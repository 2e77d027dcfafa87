// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"fxjournal/internal/calc"
	"fxjournal/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerAll(v)
	}
}

func registerAll(v *validator.Validate) {
	_ = v.RegisterValidation("trade_direction", validateTradeDirection)
	_ = v.RegisterValidation("month_key", validateMonthKey)
	_ = v.RegisterValidation("date_key", validateDateKey)
	_ = v.RegisterValidation("symbol", validateSymbol)
}

func validateTradeDirection(fl validator.FieldLevel) bool {
	_, err := models.ParseDirection(fl.Field().String())
	return err == nil
}

func validateMonthKey(fl validator.FieldLevel) bool {
	return calc.ValidMonthKey(fl.Field().String())
}

func validateDateKey(fl validator.FieldLevel) bool {
	return calc.ValidDateKey(fl.Field().String())
}

func validateSymbol(fl validator.FieldLevel) bool {
	_, ok := models.NormalizeSymbol(fl.Field().String())
	return ok
}
