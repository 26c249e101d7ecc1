package mcpserver

// DatasetFormatContract describes the tabular lineage dataset format that
// LLM consumers should follow when writing datasets for import.
const DatasetFormatContract = `# Lineage Dataset Format Contract

A lineage dataset is a table with one row per directed dependency
(FROM feeds TO). The importer turns every row into one edge.

## Files

- Stored under the datasets directory; sub-folders are allowed.
- The dataset name is the file name without extension:
  ` + "`" + `team/DEFAULT_LINEAGE_MAP.csv` + "`" + ` is the dataset ` + "`" + `DEFAULT_LINEAGE_MAP` + "`" + `.
- Formats: ` + "`" + `.csv` + "`" + ` (header row required), ` + "`" + `.yaml` + "`" + `/` + "`" + `.yml` + "`" + ` (a list of
  mappings, or a mapping with a ` + "`" + `rows` + "`" + ` list), ` + "`" + `.json` + "`" + ` (array of objects) and
  ` + "`" + `.parquet` + "`" + `. Parquet needs DuckDB. Cell values are read as text exactly as written (no trimming, no number reformatting).
- When several files share a name, the first in path order is imported.

## Columns

| Column | Meaning |
|---|---|
| from_meta_id / to_meta_id | explicit metadata id; wins over any name |
| from_meta_col_name / to_meta_col_name | name of a column metadata entity; wins over the entity name |
| from_meta_name / to_meta_name | name of the metadata entity |
| description | free-text label of the transformation (optional) |

Empty cells count as absent. Each side is resolved on its own.

## Resolution

1. A non-empty ` + "`" + `*_meta_id` + "`" + ` is used as is.
2. Otherwise the column name, or failing that the entity name, is looked up.
   When several entities share the name the first registered one is used.
3. A name that matches nothing is unresolved. Depending on the server's
   policy the edge is stored with an empty endpoint, the row is skipped, or
   the import stops.

## Upsert

Two edges are the same edge when FROM, TO and description all match.
Re-importing a dataset overwrites those edges in place, so importing
twice leaves the same edges as importing once.

## Example (CSV)

` + "```" + `csv
from_meta_name,from_meta_col_name,to_meta_name,to_meta_col_name,description
Imported dataset #1,,Hive table #1,,Cleansing #1
Hive table #2,,Hive table #1,,UPDATE SQL #1
Hive table #1,col_1,Datasource #1,region_name,Batch ingestion #1
` + "```" + `
`
