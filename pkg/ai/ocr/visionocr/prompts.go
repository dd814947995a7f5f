package visionocr

// FullPrompt asks for the complete layout structure of one page.
const FullPrompt = `Recognise the document content in the image and return JSON.

JSON structure:
{"pages":[{"page_no":1,"image_size":[width,height],"layout":[elements]}]}

Element fields:
- element_id: unique id such as "e1"
- type: title/text/table/list/formula/code/image/caption
- heading_level: heading level 1-6, null for non-headings
- bbox: [x, y, width, height] in image pixels
- text: raw text
- md_text: markdown rendition (tables use | syntax, formulas use $LaTeX$)
- confidence: 0-1
- table_info: required for tables {"headers":[],"rows":[[]],"row_count":0,"column_count":0}

Rules:
1. Tables must use type "table" and carry a complete table_info.
2. Table md_text format: | col1 | col2 |\n|---|---|\n| v1 | v2 |
3. Elements are listed in reading order.
4. Return the JSON only, no code fences, and make sure it is complete and parseable.

Table example:
{"element_id":"e1","type":"table","text":"Name Age\nAlice 25","md_text":"| Name | Age |\n|---|---|\n| Alice | 25 |","confidence":0.95,"table_info":{"headers":["Name","Age"],"rows":[["Alice","25"]],"row_count":1,"column_count":2}}`

// SimplifiedPrompt is used after a truncated or malformed reply. It keeps
// only titles and text and drops geometry so the answer fits the budget.
const SimplifiedPrompt = `Recognise the text in the image and return it as compact JSON.

The content may be long, so return only the essentials:
1. Only elements of type "title" or "text".
2. Convert tables to markdown table text inside md_text (type "text").
3. Omit bbox, table_info and any other detail.
4. Make sure the JSON is complete and not truncated.

Format:
{"pages":[{"page_no":1,"layout":[{"element_id":"e1","type":"title or text","heading_level":1,"text":"raw text","md_text":"markdown text","confidence":0.95}]}]}

Adjacent text elements may be merged when the content is long.`
