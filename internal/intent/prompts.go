package intent

import "fmt"

// buildCommandPrompt embeds the transcript into the fixed instruction
// template and output schema the model must follow.
func buildCommandPrompt(transcript string) string {
	basePrompt :=
		"You are an assistant for small-business inventory and bookkeeping.\n" +
			"Parse the voice command below and extract structured data.\n\n" +
			fmt.Sprintf("Voice command: %q\n\n", transcript)

	schemaPrompt :=
		"Respond with a single JSON object with these fields:\n" +
			"- \"intent\": one of \"add_product\", \"record_sale\", \"record_expense\", \"check_stock\", \"update_stock\"\n" +
			"- \"confidence\": number between 0.0 and 1.0\n" +
			"- \"entities\": object with any of the following keys (omit keys you cannot determine):\n" +
			"    \"product_name\": string\n" +
			"    \"quantity\": integer\n" +
			"    \"price\": number (unit price)\n" +
			"    \"category\": string\n" +
			"    \"customer_name\": string\n" +
			"    \"description\": string\n" +
			"    \"amount\": number (expense amount)\n" +
			"- \"action\": short description of what should be done\n\n"

	examplesPrompt :=
		"Examples:\n" +
			"- \"Add 50 units of iPhone 15 to inventory at $800 each\" -> intent \"add_product\"\n" +
			"- \"Record sale of 2 laptops for $1500 to John Smith\" -> intent \"record_sale\"\n" +
			"- \"I spent $200 on office supplies\" -> intent \"record_expense\"\n" +
			"- \"Check stock for MacBook Pro\" -> intent \"check_stock\"\n" +
			"- \"Set widget stock to 0\" -> intent \"update_stock\"\n\n"

	rulesPrompt :=
		"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Output must begin with \"{\" and end with \"}\".\n"

	return basePrompt + schemaPrompt + examplesPrompt + rulesPrompt
}
