package repositories

import (
	"database/sql"
	"fmt"

	"catalog_backend/internal/models"
)

// AttributeRepository loads the organization's attribute definitions. The
// registry is read-only to the catalog core.
type AttributeRepository interface {
	GetDefinitions(executor SQLExecutor, organizationID int64) ([]models.AttributeDefinition, error)
}

type attributeRepository struct {
	db *sql.DB
}

// NewAttributeRepository creates a new instance of AttributeRepository.
func NewAttributeRepository(db *sql.DB) AttributeRepository {
	return &attributeRepository{db: db}
}

func (r *attributeRepository) GetDefinitions(executor SQLExecutor, organizationID int64) ([]models.AttributeDefinition, error) {
	definitions := []models.AttributeDefinition{}
	query := `SELECT id, organization_id, attr_key, attr_type, required
	          FROM attribute_definitions
	          WHERE organization_id = $1
	          ORDER BY attr_key`
	rows, err := executor.Query(query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying attribute definitions for organization %d: %v", ErrDatabaseError, organizationID, err)
	}
	defer rows.Close()

	indexByID := map[int64]int{}
	for rows.Next() {
		var definition models.AttributeDefinition
		if err := rows.Scan(
			&definition.ID, &definition.OrganizationID, &definition.AttrKey,
			&definition.AttrType, &definition.Required,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning attribute definition: %v", ErrDatabaseError, err)
		}
		indexByID[definition.ID] = len(definitions)
		definitions = append(definitions, definition)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating attribute definition rows: %v", ErrDatabaseError, err)
	}
	if len(definitions) == 0 {
		return definitions, nil
	}

	optionQuery := `SELECT o.id, o.definition_id, o.locale, o.value
	                FROM attribute_options o
	                JOIN attribute_definitions d ON o.definition_id = d.id
	                WHERE d.organization_id = $1
	                ORDER BY o.definition_id, o.id`
	optionRows, err := executor.Query(optionQuery, organizationID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying attribute options for organization %d: %v", ErrDatabaseError, organizationID, err)
	}
	defer optionRows.Close()

	for optionRows.Next() {
		var option models.AttributeOption
		if err := optionRows.Scan(&option.ID, &option.DefinitionID, &option.Locale, &option.Value); err != nil {
			return nil, fmt.Errorf("%w: scanning attribute option: %v", ErrDatabaseError, err)
		}
		if idx, ok := indexByID[option.DefinitionID]; ok {
			definitions[idx].Options = append(definitions[idx].Options, option)
		}
	}
	if err = optionRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating attribute option rows: %v", ErrDatabaseError, err)
	}
	return definitions, nil
}
