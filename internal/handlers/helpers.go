package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/pkg/response"
)

const feedPath = "/listings/"

// pathID parses a numeric path parameter, answering 404 when it is not one.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.NotFound(c, "Not found.")
		return 0, false
	}
	return uint(id), true
}

// bind decodes a JSON or form body. Tag failures come back as field errors;
// anything else malformed is a plain bad request.
func bind(c *gin.Context, req interface{}) bool {
	useJSONFieldNames()
	if err := c.ShouldBind(req); err != nil {
		if fields := bindingFieldErrors(err); fields != nil {
			response.Error(c, response.NewValidation(fields))
			return false
		}
		response.BadRequest(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

// bindQuery is bind for query strings.
func bindQuery(c *gin.Context, req interface{}) bool {
	useJSONFieldNames()
	if err := c.ShouldBindQuery(req); err != nil {
		if fields := bindingFieldErrors(err); fields != nil {
			response.Error(c, response.NewValidation(fields))
			return false
		}
		response.BadRequest(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

func listingPath(id uint) string {
	return fmt.Sprintf("/listings/%d", id)
}

type catalogChoices struct {
	Instruments []models.Choice `json:"instrument_choices"`
	Genres      []models.Choice `json:"genre_choices"`
}

func catalog() catalogChoices {
	return catalogChoices{
		Instruments: models.Instruments.Choices(),
		Genres:      models.Genres.Choices(),
	}
}
