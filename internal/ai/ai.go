package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// AIService holds the Gemini client and the read-only database connection
// the model may query through its tool.
type AIService struct {
	Client *genai.Client
	DB     *sql.DB
}

// NewAIService initializes the Gemini client.
func NewAIService(apiKey string, dbReadOnly *sql.DB) (*AIService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &AIService{Client: client, DB: dbReadOnly}, nil
}

// GenerateResponse answers one chat message. The model can call the
// run_readonly_sql tool to look at the caller's farm data before answering.
// Returns the reply text and the total token count for the exchange.
func (s *AIService) GenerateResponse(ctx context.Context, userMessage string, userRole string, modelName string) (string, int, error) {
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	model := s.Client.GenerativeModel(modelName)

	sqlTool := &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "run_readonly_sql",
				Description: "Executes a READ-ONLY SQL query (SELECT only) to answer questions about farm data.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "The MySQL SELECT query to execute.",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}
	model.Tools = []*genai.Tool{sqlTool}

	schemaContext := s.getSchemaDefinition()
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(`
			You are the Smart Farm Assistant, an agricultural advisor. Role: %s.
			Access: MySQL database (run_readonly_sql).
			Schema: %s
			Rules: SELECT only. Be concise and practical. Give farming advice
			(planting, harvest timing, crop care, farm finances) grounded in
			the user's own records when relevant.
		`, userRole, schemaContext))},
	}

	cs := model.StartChat()
	res, err := cs.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", 0, fmt.Errorf("error sending message: %w", err)
	}

	totalTokens := 0
	if res.UsageMetadata != nil {
		totalTokens += int(res.UsageMetadata.TotalTokenCount)
	}

	// Tool-call loop: keep feeding SQL results back until the model answers
	// with text.
	for {
		if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
			return "No response.", totalTokens, nil
		}
		part := res.Candidates[0].Content.Parts[0]

		funcCall, ok := part.(genai.FunctionCall)
		if !ok {
			return fmt.Sprintf("%v", part), totalTokens, nil
		}

		if funcCall.Name != "run_readonly_sql" {
			return "", totalTokens, fmt.Errorf("unknown function: %s", funcCall.Name)
		}

		query, ok := funcCall.Args["query"].(string)
		if !ok {
			return "", totalTokens, fmt.Errorf("invalid query argument")
		}
		log.Printf("ai: running SQL: %s", query)

		sqlResult, sqlErr := s.runReadOnlyQuery(query)
		if sqlErr != nil {
			sqlResult = fmt.Sprintf("SQL Error: %v", sqlErr)
		}

		res, err = cs.SendMessage(ctx, genai.FunctionResponse{
			Name:     "run_readonly_sql",
			Response: map[string]interface{}{"result": sqlResult},
		})
		if err != nil {
			return "", totalTokens, fmt.Errorf("tool response error: %w", err)
		}
		if res.UsageMetadata != nil {
			totalTokens = int(res.UsageMetadata.TotalTokenCount)
		}
	}
}

// runReadOnlyQuery executes a SELECT and returns the result set as JSON.
// Anything that smells like a write is rejected before it reaches the
// database.
func (s *AIService) runReadOnlyQuery(query string) (string, error) {
	normalized := strings.ToUpper(query)
	for _, forbidden := range []string{"UPDATE", "DELETE", "DROP", "INSERT", "ALTER", "TRUNCATE"} {
		if strings.Contains(normalized, forbidden) {
			return "", fmt.Errorf("security violation: modify operations are not allowed")
		}
	}
	rows, err := s.DB.Query(query)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	columns, _ := rows.Columns()
	count := len(columns)
	tableData := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, count)
		valuePtrs := make([]interface{}, count)
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		rows.Scan(valuePtrs...)
		entry := make(map[string]interface{})
		for i, col := range columns {
			var v interface{}
			val := values[i]
			b, ok := val.([]byte)
			if ok {
				v = string(b)
			} else {
				v = val
			}
			entry[col] = v
		}
		tableData = append(tableData, entry)
	}
	jsonData, err := json.Marshal(tableData)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (s *AIService) getSchemaDefinition() string {
	return `
	- users (id, username, email, role [admin, manager, staff, client], status [active, inactive, suspended], phone, address_district, address_sector, address_cell, address_village)
	- crop_plans (id, crop_name, variety, field_area, planting_date, expected_harvest_date, expected_yield, cost, status [planned, active, growing, harvested], notes, created_by)
	- harvests (id, crop_plan_id, crop_name, harvest_date, actual_yield, quality, market_price, total_revenue, storage_location, created_by)
	- farm_transactions (id, type [Income, Expense], amount, crop_activity, description, transaction_date, created_by)
	- inputs (id, name, amount, input_date, description, created_by)
	- notifications (id, title, message, type, priority, category, data, status, created_at)
	- messages (id, user_id, sender [user, bot], content, type, created_at)
	`
}
