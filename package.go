// Comfymeta extracts generation parameters (prompts, model, sampler settings,
// LoRA stacks) from the metadata that ComfyUI embeds in the images it renders.
// Both graph representations found in PNG files are supported: the flattened
// prompt form produced for the execution API, and the full workflow form saved
// by the frontend. The extraction engine lives in the extract package; the
// graphapi package holds the graph models, and pngmeta, metacache, searchindex
// and worker provide the surrounding gallery plumbing.
package comfymeta
